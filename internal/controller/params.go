package controller

import (
	"time"

	"ai-chat-be/internal/pkg/apierr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid %s %q", name, ctx.Params(name))
	}
	return id, nil
}

func timeQuery(ctx *fiber.Ctx, name string) (time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return time.Time{}, apierr.Validation("query parameter %s is required", name)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apierr.Validation("invalid %s %q: expected RFC3339", name, raw)
	}
	return ts.UTC(), nil
}
