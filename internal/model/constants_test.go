package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"collabnote-backend/internal/errs"
)

func TestBlockTypeValid(t *testing.T) {
	assert.True(t, BlockTypeText.Valid())
	assert.True(t, BlockTypeChecklist.Valid())
	assert.True(t, BlockTypeImage.Valid())
	assert.True(t, BlockTypeCode.Valid())
	assert.False(t, BlockType("table").Valid())
	assert.False(t, BlockType("").Valid())
}

func TestValidateContentImage(t *testing.T) {
	accept := []string{
		"",
		"   ",
		"https://example.com/a.png",
		"http://example.com/a.png",
		"/uploads/a.png",
		"./a.png",
		"../shared/a.png",
		"data:image/png;base64,iVBORw0KGgo=",
		"data:image/svg+xml;base64,PHN2Zz4=",
		"blob:https://example.com/550e8400",
	}
	for _, content := range accept {
		assert.NoError(t, BlockTypeImage.ValidateContent(content), "content %q", content)
	}

	reject := []string{
		"just some text",
		"ftp://example.com/a.png",
		"data:image/png,notbase64",
		"data:text/plain;base64,aGVsbG8=",
		"https://",
		"blob:",
		"example.com/a.png",
	}
	for _, content := range reject {
		err := BlockTypeImage.ValidateContent(content)
		assert.ErrorIs(t, err, errs.ErrInvalidContent, "content %q", content)
	}
}

func TestValidateContentNonImageOpaque(t *testing.T) {
	// Text, checklist, and code accept anything, including empty.
	for _, typ := range []BlockType{BlockTypeText, BlockTypeChecklist, BlockTypeCode} {
		assert.NoError(t, typ.ValidateContent(""))
		assert.NoError(t, typ.ValidateContent("arbitrary content {[<>]}"))
		assert.NoError(t, typ.ValidateContent("not a url at all"))
	}
}
