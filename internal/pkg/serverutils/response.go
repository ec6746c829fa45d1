package serverutils

import (
	"errors"

	"ai-chat-be/internal/pkg/apierr"

	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the JSON shape of every non-streaming failure.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func ErrorResponse(code, details string) ErrorBody {
	return ErrorBody{Error: code, Details: details}
}

// WriteError maps err to a status code and writes it as an ErrorBody.
func WriteError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal_error"

	var apiErr *apierr.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		status, code = apiErr.Status, apiErr.Code
	case errors.As(err, &fiberErr):
		status, code = fiberErr.Code, fiberErr.Message
	}

	return ctx.Status(status).JSON(ErrorResponse(code, err.Error()))
}

// ErrorHandlerMiddleware renders any error returned further down the chain.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return WriteError(ctx, err)
		}
		return nil
	}
}
