// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNoteNotFound indicates the referenced note does not exist.
	ErrNoteNotFound = errors.New("note not found")

	// ErrBlockNotFound indicates the referenced block does not exist under the note.
	ErrBlockNotFound = errors.New("block not found")

	// ErrForbidden indicates the caller is not the note's owner.
	ErrForbidden = errors.New("you do not have access to this note")

	// ErrConflict indicates an optimistic-concurrency token mismatch.
	ErrConflict = errors.New("block was modified by another user")

	// ErrInvalidContent indicates content failing the block type's grammar.
	ErrInvalidContent = errors.New("invalid content")

	// ErrInvalidType indicates a block type outside the known set.
	ErrInvalidType = errors.New("invalid block type")

	// ErrEmailTaken indicates a registration against an existing email.
	ErrEmailTaken = errors.New("email already exists")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
