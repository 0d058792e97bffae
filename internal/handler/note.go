package handler

import (
	"github.com/gofiber/fiber/v2"

	"collabnote-backend/internal/service"
)

// NoteHandler serves note CRUD.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// CreateNoteRequest is the create-note payload.
type CreateNoteRequest struct {
	Title string `json:"title"`
}

// UpdateNoteRequest is the update-note payload.
type UpdateNoteRequest struct {
	Title *string `json:"title"`
}

// CreateNote handles POST /api/notes.
func (h *NoteHandler) CreateNote(c *fiber.Ctx) error {
	var req CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}

	note, err := h.notes.Create(callerID(c), service.CreateNoteInput{Title: req.Title})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetMyNotes handles GET /api/notes.
func (h *NoteHandler) GetMyNotes(c *fiber.Ctx) error {
	notes, err := h.notes.FindAll(callerID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(notes)
}

// GetNote handles GET /api/notes/:noteId.
func (h *NoteHandler) GetNote(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	note, err := h.notes.FindOne(int64(noteID), callerID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(note)
}

// UpdateNote handles PATCH /api/notes/:noteId.
func (h *NoteHandler) UpdateNote(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	var req UpdateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	note, err := h.notes.Update(int64(noteID), callerID(c), service.UpdateNoteInput{Title: req.Title})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(note)
}

// DeleteNote handles DELETE /api/notes/:noteId.
func (h *NoteHandler) DeleteNote(c *fiber.Ctx) error {
	noteID, err := c.ParamsInt("noteId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid note id"})
	}

	if err := h.notes.Remove(int64(noteID), callerID(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Note deleted successfully"})
}
