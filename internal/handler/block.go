package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"collabnote-backend/internal/model"
	"collabnote-backend/internal/service"
)

// BlockHandler serves the block store endpoints under
// /api/notes/:noteId/blocks.
type BlockHandler struct {
	blocks *service.BlockService
}

// NewBlockHandler creates a BlockHandler.
func NewBlockHandler(blocks *service.BlockService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// CreateBlockRequest is the create-block payload.
type CreateBlockRequest struct {
	Type       model.BlockType `json:"type"`
	Content    string          `json:"content"`
	OrderIndex int             `json:"order_index"`
	ParentID   *int64          `json:"parent_id,omitempty"`
}

// UpdateBlockRequest is the partial-update payload. ExpectedUpdatedAt is the
// optimistic-lock token as an RFC3339 timestamp; omitting it skips the check.
type UpdateBlockRequest struct {
	Type              *model.BlockType `json:"type,omitempty"`
	Content           *string          `json:"content,omitempty"`
	OrderIndex        *int             `json:"order_index,omitempty"`
	ExpectedUpdatedAt *string          `json:"expected_updated_at,omitempty"`
}

// ReorderBlocksRequest is the reorder payload.
type ReorderBlocksRequest struct {
	Blocks []service.BlockOrder `json:"blocks"`
}

// CreateBlock handles POST /api/notes/:noteId/blocks.
func (h *BlockHandler) CreateBlock(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	var req CreateBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	block, err := h.blocks.Create(int64(noteID), callerID(c), service.CreateBlockInput{
		Type:       req.Type,
		Content:    req.Content,
		OrderIndex: req.OrderIndex,
		ParentID:   req.ParentID,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(block)
}

// GetBlocks handles GET /api/notes/:noteId/blocks.
func (h *BlockHandler) GetBlocks(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	blocks, err := h.blocks.FindAll(int64(noteID), callerID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(blocks)
}

// GetBlock handles GET /api/notes/:noteId/blocks/:id.
func (h *BlockHandler) GetBlock(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}
	blockID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid block id"})
	}

	block, err := h.blocks.FindOne(int64(blockID), int64(noteID), callerID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(block)
}

// UpdateBlock handles PATCH /api/notes/:noteId/blocks/:id.
func (h *BlockHandler) UpdateBlock(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}
	blockID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid block id"})
	}

	var req UpdateBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	in := service.UpdateBlockInput{
		Type:       req.Type,
		Content:    req.Content,
		OrderIndex: req.OrderIndex,
	}
	if req.ExpectedUpdatedAt != nil {
		expected, err := time.Parse(time.RFC3339Nano, *req.ExpectedUpdatedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid expected_updated_at"})
		}
		in.ExpectedUpdatedAt = &expected
	}

	block, err := h.blocks.Update(int64(blockID), int64(noteID), callerID(c), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(block)
}

// DeleteBlock handles DELETE /api/notes/:noteId/blocks/:id.
func (h *BlockHandler) DeleteBlock(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}
	blockID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid block id"})
	}

	if err := h.blocks.Remove(int64(blockID), int64(noteID), callerID(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Block deleted successfully"})
}

// ReorderBlocks handles POST /api/notes/:noteId/blocks/reorder.
func (h *BlockHandler) ReorderBlocks(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	var req ReorderBlocksRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.blocks.Reorder(int64(noteID), callerID(c), req.Blocks); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blocks reordered successfully"})
}
