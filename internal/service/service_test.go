package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collabnote-backend/internal/model"
)

// setupDB opens a per-test in-memory database with the schema migrated.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Note{}, &model.Block{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := model.User{Email: email, Password: string(hash)}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createNote(t *testing.T, db *gorm.DB, userID int64, title string) *model.Note {
	t.Helper()

	note := model.Note{UserID: userID, Title: title}
	require.NoError(t, db.Create(&note).Error)
	return &note
}
