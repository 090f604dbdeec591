package serverutils

import (
	"errors"

	"conversation-core/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error onto an HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, apperror.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into a BaseResponse.
// Storage failures are reported without their driver detail.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError && errors.Is(err, apperror.ErrStorage) {
			message = "storage failure"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
