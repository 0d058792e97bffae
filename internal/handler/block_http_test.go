package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collabnote-backend/internal/auth"
	"collabnote-backend/internal/model"
	"collabnote-backend/internal/service"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	jwt *auth.JWTManager
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Note{}, &model.Block{}))

	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	guard := service.NewAccessGuard(db)
	blocks := NewBlockHandler(service.NewBlockService(db, guard))
	notes := NewNoteHandler(service.NewNoteService(db, guard))

	app := fiber.New()
	group := app.Group("/api/notes", auth.AuthMiddleware(jwtManager))
	group.Post("", notes.CreateNote)
	group.Post("/:noteId/blocks", blocks.CreateBlock)
	group.Get("/:noteId/blocks", blocks.GetBlocks)
	group.Post("/:noteId/blocks/reorder", blocks.ReorderBlocks)
	group.Get("/:noteId/blocks/:id", blocks.GetBlock)
	group.Patch("/:noteId/blocks/:id", blocks.UpdateBlock)
	group.Delete("/:noteId/blocks/:id", blocks.DeleteBlock)

	return &testEnv{app: app, db: db, jwt: jwtManager}
}

func (e *testEnv) user(t *testing.T, email string) (*model.User, string) {
	t.Helper()

	u := model.User{Email: email, Password: "irrelevant-hash"}
	require.NoError(t, e.db.Create(&u).Error)

	token, err := e.jwt.GenerateAccessToken(u.ID, u.Email)
	require.NoError(t, err)
	return &u, token
}

func (e *testEnv) note(t *testing.T, userID int64) *model.Note {
	t.Helper()

	n := model.Note{UserID: userID, Title: "test note"}
	require.NoError(t, e.db.Create(&n).Error)
	return &n
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBlock(t *testing.T, resp *http.Response) model.Block {
	t.Helper()
	var b model.Block
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return b
}

func TestBlockEndpointsRequireAuth(t *testing.T) {
	env := setupApp(t)

	resp := env.request(t, http.MethodGet, "/api/notes/1/blocks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListBlocks(t *testing.T) {
	env := setupApp(t)
	owner, token := env.user(t, "owner@example.com")
	note := env.note(t, owner.ID)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token,
		CreateBlockRequest{Type: model.BlockTypeText, Content: "first", OrderIndex: 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBlock(t, resp)
	assert.Equal(t, "first", created.Content)

	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token,
		CreateBlockRequest{Type: model.BlockTypeText, Content: "zeroth", OrderIndex: 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []model.Block
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "zeroth", list[0].Content)
	assert.Equal(t, "first", list[1].Content)
}

func TestCreateBlockInvalidType(t *testing.T) {
	env := setupApp(t)
	owner, token := env.user(t, "owner@example.com")
	note := env.note(t, owner.ID)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token,
		CreateBlockRequest{Type: model.BlockType("table"), Content: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForbiddenForNonOwner(t *testing.T) {
	env := setupApp(t)
	owner, _ := env.user(t, "owner@example.com")
	_, intruderToken := env.user(t, "intruder@example.com")
	note := env.note(t, owner.ID)

	resp := env.request(t, http.MethodGet, fmt.Sprintf("/api/notes/%d/blocks", note.ID), intruderToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/notes/999/blocks", intruderToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateBlockConflictStatus(t *testing.T) {
	env := setupApp(t)
	owner, token := env.user(t, "owner@example.com")
	note := env.note(t, owner.ID)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token,
		CreateBlockRequest{Type: model.BlockTypeText, Content: "v1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBlock(t, resp)

	path := fmt.Sprintf("/api/notes/%d/blocks/%d", note.ID, created.ID)
	goodToken := created.UpdatedAt.Format(time.RFC3339Nano)
	v2 := "v2"

	resp = env.request(t, http.MethodPatch, path, token,
		UpdateBlockRequest{Content: &v2, ExpectedUpdatedAt: &goodToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBlock(t, resp)
	assert.Equal(t, "v2", updated.Content)

	// Replaying the original token now conflicts.
	v3 := "v3"
	resp = env.request(t, http.MethodPatch, path, token,
		UpdateBlockRequest{Content: &v3, ExpectedUpdatedAt: &goodToken})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// An unparseable token is a bad request, not a conflict.
	garbage := "not-a-timestamp"
	resp = env.request(t, http.MethodPatch, path, token,
		UpdateBlockRequest{Content: &v3, ExpectedUpdatedAt: &garbage})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReorderAndDeleteEndpoints(t *testing.T) {
	env := setupApp(t)
	owner, token := env.user(t, "owner@example.com")
	note := env.note(t, owner.ID)

	var ids []int64
	for i := 0; i < 2; i++ {
		resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token,
			CreateBlockRequest{Type: model.BlockTypeText, Content: "b", OrderIndex: i})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ids = append(ids, decodeBlock(t, resp).ID)
	}

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/notes/%d/blocks/reorder", note.ID), token,
		ReorderBlocksRequest{Blocks: []service.BlockOrder{
			{ID: ids[0], OrderIndex: 1},
			{ID: ids[1], OrderIndex: 0},
		}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/notes/%d/blocks", note.ID), token, nil)
	var list []model.Block
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)

	resp = env.request(t, http.MethodDelete, fmt.Sprintf("/api/notes/%d/blocks/%d", note.ID, ids[0]), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/notes/%d/blocks/%d", note.ID, ids[0]), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
