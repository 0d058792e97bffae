package model

import (
	"fmt"
	"regexp"
	"strings"

	"collabnote-backend/internal/errs"
)

// BlockType is the closed set of block kinds. Content grammar is
// type-dependent and validation dispatches on the tag.
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeChecklist BlockType = "checklist"
	BlockTypeImage     BlockType = "image"
	BlockTypeCode      BlockType = "code"
)

func (t BlockType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeText, BlockTypeChecklist, BlockTypeImage, BlockTypeCode:
		return true
	}
	return false
}

// Image content must be empty (placeholder while the editor is pending) or
// one of: absolute http(s) URL, root-relative / relative path, base64 data
// URI, or a blob object URL.
var imageContentRe = regexp.MustCompile(`^(?:https?://.+|/.+|\./.+|\.\./.+|data:image/[a-zA-Z0-9.+-]+;base64,.+|blob:.+)$`)

// ValidateContent checks content against the grammar of the block type.
// Text, checklist, and code carry opaque content (checklist items are a
// serialized list produced by the editor, not the store).
func (t BlockType) ValidateContent(content string) error {
	if t != BlockTypeImage {
		return nil
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	if !imageContentRe.MatchString(trimmed) {
		return fmt.Errorf("%w: image content must be a URL, path, data URI, or blob reference", errs.ErrInvalidContent)
	}
	return nil
}
