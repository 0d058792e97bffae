package model

import (
	"time"
)

// User owns notes. Password holds the bcrypt hash and never serializes.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Notes []Note `gorm:"foreignKey:UserID" json:"notes,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Note is the unit of collaboration. Exactly one owner; only the owner may
// read or mutate its blocks. LastEditedBy tracks the most recent mutating
// caller, including block-level edits.
type Note struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	LastEditedBy *int64    `json:"last_edited_by,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User   User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Blocks []Block `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE" json:"blocks,omitempty"`
}

func (Note) TableName() string {
	return "notes"
}

// Block is a typed content unit within a note. OrderIndex defines render
// order among siblings; it is not required to be unique or contiguous, and
// ties break arbitrarily. UpdatedAt doubles as the optimistic-concurrency
// token: it changes on every successful mutation, and an update supplying a
// stale value is rejected outright.
type Block struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NoteID     int64     `gorm:"not null;index" json:"note_id"`
	ParentID   *int64    `json:"parent_id,omitempty"` // hierarchy reserved, unused by core logic
	Type       BlockType `gorm:"type:varchar(20);not null" json:"type"`
	Content    string    `gorm:"type:text" json:"content"`
	OrderIndex int       `gorm:"default:0" json:"order_index"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Note Note `gorm:"foreignKey:NoteID" json:"note,omitempty"`
}

func (Block) TableName() string {
	return "blocks"
}
