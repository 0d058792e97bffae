package service

import (
	"gorm.io/gorm"

	"collabnote-backend/internal/model"
)

// NoteService handles note-level CRUD. The only concurrency hazard here is
// ownership, enforced through the access guard.
type NoteService struct {
	db    *gorm.DB
	guard *AccessGuard
}

// NewNoteService creates a NoteService.
func NewNoteService(db *gorm.DB, guard *AccessGuard) *NoteService {
	return &NoteService{db: db, guard: guard}
}

// CreateNoteInput carries the fields of a new note.
type CreateNoteInput struct {
	Title string
}

// UpdateNoteInput carries a partial note update.
type UpdateNoteInput struct {
	Title *string
}

// Create persists a new note owned by callerID.
func (s *NoteService) Create(callerID int64, in CreateNoteInput) (*model.Note, error) {
	note := model.Note{
		UserID:       callerID,
		Title:        in.Title,
		LastEditedBy: &callerID,
	}

	if err := s.db.Create(&note).Error; err != nil {
		return nil, err
	}

	return &note, nil
}

// FindAll returns the caller's notes, most recently updated first.
func (s *NoteService) FindAll(callerID int64) ([]model.Note, error) {
	var notes []model.Note
	if err := s.db.Where("user_id = ?", callerID).
		Order("updated_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// FindOne returns the note with its blocks sorted by order_index.
func (s *NoteService) FindOne(noteID, callerID int64) (*model.Note, error) {
	note, err := s.guard.VerifyNoteAccess(noteID, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Where("note_id = ?", noteID).
		Order("order_index ASC").
		Find(&note.Blocks).Error; err != nil {
		return nil, err
	}

	return note, nil
}

// Update applies a partial update to the note and records the caller as the
// last editor.
func (s *NoteService) Update(noteID, callerID int64, in UpdateNoteInput) (*model.Note, error) {
	note, err := s.guard.VerifyNoteAccess(noteID, callerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		note.Title = *in.Title
	}
	note.LastEditedBy = &callerID

	if err := s.db.Save(note).Error; err != nil {
		return nil, err
	}

	return note, nil
}

// Remove deletes the note and its blocks in one transaction.
func (s *NoteService) Remove(noteID, callerID int64) error {
	note, err := s.guard.VerifyNoteAccess(noteID, callerID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", noteID).Delete(&model.Block{}).Error; err != nil {
			return err
		}
		return tx.Delete(note).Error
	})
}
