package handlers

import (
	"errors"

	"github.com/Misikirayu/mate-finder/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": services.PublicMessage(err, "Invalid request")})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.PublicMessage(err, "Unauthorized")})
	case errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": services.PublicMessage(err, "Conflict")})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": services.PublicMessage(err, "Not found")})
	case errors.Is(err, services.ErrStore):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": services.PublicMessage(err, "Database error")})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected error"})
	}
}

// ErrorHandler answers errors that escaped a handler, including recovered
// panics, without exposing their text.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}
		logger.Error("unhandled request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected error"})
	}
}
