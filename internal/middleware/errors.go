package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type errorBody struct {
	Message string `json:"message"`
}

// ErrorHandler renders every error as {"message": ...}. Errors that are not
// *fiber.Error are logged and reported as a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{Message: fe.Message})
		}
		if logger != nil {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(http.StatusInternalServerError).JSON(errorBody{Message: "Error: Internal server error"})
	}
}
