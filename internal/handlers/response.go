package handlers

import (
	"errors"
	"strconv"

	"souq/server/internal/chat"
	"souq/server/internal/logger"
	"souq/server/internal/notification"
	"souq/server/internal/repository"

	"github.com/gofiber/fiber/v2"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// failFor maps a service error to a response. Unexpected errors are
// logged and hidden behind a generic message.
func failFor(c *fiber.Ctx, err error) error {
	switch {
	case chat.IsValidation(err):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, notification.ErrInvalidRequest):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	logger.Ctx(c.UserContext()).Error().Err(err).Msg("request failed")
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
