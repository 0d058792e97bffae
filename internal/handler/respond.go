package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"collabnote-backend/internal/errs"
)

// errorResponse maps sentinel errors to HTTP statuses with the
// `{ "error": msg }` body shape used across the API.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errs.ErrNoteNotFound), errors.Is(err, errs.ErrBlockNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidContent), errors.Is(err, errs.ErrInvalidType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// callerID reads the authenticated user id stored by the auth middleware.
func callerID(c *fiber.Ctx) int64 {
	if val := c.Locals("userID"); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}
