package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// AppError carries the HTTP status a service error should be rendered with.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(status int, err error) *AppError {
	return &AppError{Status: status, Message: err.Error(), Err: err}
}

// ErrorHandlerMiddleware converts handler errors into the standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *AppError
		var valErr *ValidationError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			return ctx.Status(appErr.Status).JSON(ErrorResponse(appErr.Status, appErr.Error()))
		case errors.As(err, &valErr):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, valErr.Error()))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
		}
	}
}
