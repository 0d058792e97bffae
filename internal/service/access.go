package service

import (
	"errors"

	"gorm.io/gorm"

	"collabnote-backend/internal/errs"
	"collabnote-backend/internal/model"
)

// AccessGuard is the single authorization choke point: every block
// operation and every realtime room join resolves note access through it.
type AccessGuard struct {
	db *gorm.DB
}

// NewAccessGuard creates an AccessGuard.
func NewAccessGuard(db *gorm.DB) *AccessGuard {
	return &AccessGuard{db: db}
}

// VerifyNoteAccess returns the note when callerID owns noteID. It is a pure
// read: errs.ErrNoteNotFound when the note is absent, errs.ErrForbidden when
// the caller is not the owner.
func (g *AccessGuard) VerifyNoteAccess(noteID, callerID int64) (*model.Note, error) {
	var note model.Note
	if err := g.db.First(&note, "id = ?", noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNoteNotFound
		}
		return nil, err
	}

	if note.UserID != callerID {
		return nil, errs.ErrForbidden
	}

	return &note, nil
}
