package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"collabnote-backend/internal/errs"
	"collabnote-backend/internal/model"
)

// BlockService is the block store: it enforces ownership, type-specific
// content grammar, and optimistic concurrency, and is the sole writer of
// block content, order_index, and updated_at.
type BlockService struct {
	db    *gorm.DB
	guard *AccessGuard
}

// NewBlockService creates a BlockService.
func NewBlockService(db *gorm.DB, guard *AccessGuard) *BlockService {
	return &BlockService{db: db, guard: guard}
}

// CreateBlockInput carries the fields of a new block.
type CreateBlockInput struct {
	Type       model.BlockType
	Content    string
	OrderIndex int
	ParentID   *int64
}

// UpdateBlockInput carries a partial update; nil fields are left untouched.
// ExpectedUpdatedAt, when set, is the optimistic-lock token: the update is
// rejected with errs.ErrConflict unless it equals the stored updated_at.
type UpdateBlockInput struct {
	Type              *model.BlockType
	Content           *string
	OrderIndex        *int
	ExpectedUpdatedAt *time.Time
}

// BlockOrder is one (id, order_index) pair of a reorder batch.
type BlockOrder struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

// Create validates content against the type's grammar, persists the block,
// and records the caller as the note's last editor.
func (s *BlockService) Create(noteID, callerID int64, in CreateBlockInput) (*model.Block, error) {
	if _, err := s.guard.VerifyNoteAccess(noteID, callerID); err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		return nil, errs.ErrInvalidType
	}
	if err := in.Type.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	block := model.Block{
		NoteID:     noteID,
		ParentID:   in.ParentID,
		Type:       in.Type,
		Content:    in.Content,
		OrderIndex: in.OrderIndex,
	}

	if err := s.db.Create(&block).Error; err != nil {
		return nil, err
	}

	if err := s.touchNote(s.db, noteID, callerID); err != nil {
		return nil, err
	}

	return &block, nil
}

// FindAll returns the note's blocks ordered ascending by order_index.
// Ties break arbitrarily; callers must not rely on tie order.
func (s *BlockService) FindAll(noteID, callerID int64) ([]model.Block, error) {
	if _, err := s.guard.VerifyNoteAccess(noteID, callerID); err != nil {
		return nil, err
	}

	var blocks []model.Block
	if err := s.db.Where("note_id = ?", noteID).
		Order("order_index ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}

	return blocks, nil
}

// FindOne returns the block by id scoped to the note.
func (s *BlockService) FindOne(blockID, noteID, callerID int64) (*model.Block, error) {
	if _, err := s.guard.VerifyNoteAccess(noteID, callerID); err != nil {
		return nil, err
	}

	var block model.Block
	err := s.db.Where("id = ? AND note_id = ?", blockID, noteID).First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrBlockNotFound
		}
		return nil, err
	}

	return &block, nil
}

// Update applies a partial update under optimistic concurrency. The lock
// token is checked before any field is applied; on mismatch nothing is
// persisted and the caller must refetch. The returned block carries the new
// updated_at, which is the token for the next update.
func (s *BlockService) Update(blockID, noteID, callerID int64, in UpdateBlockInput) (*model.Block, error) {
	block, err := s.FindOne(blockID, noteID, callerID)
	if err != nil {
		return nil, err
	}

	if in.ExpectedUpdatedAt != nil && !in.ExpectedUpdatedAt.Equal(block.UpdatedAt) {
		return nil, errs.ErrConflict
	}

	resultingType := block.Type
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, errs.ErrInvalidType
		}
		resultingType = *in.Type
	}
	if in.Content != nil {
		if err := resultingType.ValidateContent(*in.Content); err != nil {
			return nil, err
		}
		block.Content = *in.Content
	}
	block.Type = resultingType
	if in.OrderIndex != nil {
		block.OrderIndex = *in.OrderIndex
	}

	// Save writes every column, so updated_at rotates even when the applied
	// fields equal the stored ones. The new value is the next lock token.
	if err := s.db.Save(block).Error; err != nil {
		return nil, err
	}

	if err := s.touchNote(s.db, noteID, callerID); err != nil {
		return nil, err
	}

	return block, nil
}

// Remove deletes the block and records the caller as the note's last editor.
func (s *BlockService) Remove(blockID, noteID, callerID int64) error {
	block, err := s.FindOne(blockID, noteID, callerID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(block).Error; err != nil {
		return err
	}

	return s.touchNote(s.db, noteID, callerID)
}

// Reorder applies each (id, order_index) pair scoped to (id, note_id) inside
// a single transaction: either the whole batch commits or none of it does,
// so partial orderings are never observable. Pairs referencing blocks that do
// not belong to the note match zero rows and are silently ignored (preserved
// behavior of the update scoping, not an error).
func (s *BlockService) Reorder(noteID, callerID int64, pairs []BlockOrder) error {
	if _, err := s.guard.VerifyNoteAccess(noteID, callerID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range pairs {
			err := tx.Model(&model.Block{}).
				Where("id = ? AND note_id = ?", p.ID, noteID).
				Update("order_index", p.OrderIndex).Error
			if err != nil {
				return err
			}
		}
		return s.touchNote(tx, noteID, callerID)
	})
}

// touchNote records callerID as the note's most recent mutating caller.
func (s *BlockService) touchNote(db *gorm.DB, noteID, callerID int64) error {
	return db.Model(&model.Note{}).
		Where("id = ?", noteID).
		Update("last_edited_by", callerID).Error
}
