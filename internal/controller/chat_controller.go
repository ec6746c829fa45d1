package controller

import (
	"bufio"
	"context"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	StartTurn(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateVisibility(ctx *fiber.Ctx) error
	DeleteTrailingMessages(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
}

type chatController struct {
	service     service.IChatService
	turnTimeout time.Duration
	logger      logger.ILogger
}

func NewChatController(service service.IChatService, turnTimeout time.Duration, log logger.ILogger) IChatController {
	return &chatController{
		service:     service,
		turnTimeout: turnTimeout,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat/v1")
	h.Use(auth)
	h.Post("", c.StartTurn)
	h.Get(":id", c.GetHistory)
	h.Delete(":id", c.Delete)
	h.Patch(":id/visibility", c.UpdateVisibility)
	h.Delete(":id/messages", c.DeleteTrailingMessages)
	h.Post(":id/stop", c.Stop)

	history := r.Group("/history/v1")
	history.Use(auth)
	history.Get("", c.GetAll)
}

// StartTurn fails with a JSON error until the inbound message is stored. From then on the
// response is an NDJSON stream and errors travel inside it.
func (c *chatController) StartTurn(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.StartTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, err := c.service.StartTurn(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/x-ndjson; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Accel-Buffering", "no")

	// the request context ends when the handler returns; keep its values, not its deadline
	parent := context.WithoutCancel(ctx.UserContext())
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithTimeout(parent, c.turnTimeout)
		defer cancel()

		if err := c.service.StreamTurn(streamCtx, turn, stream.NewLineWriter(w)); err != nil {
			c.logger.Warn("ChatController", "Turn ended early", map[string]interface{}{
				"chat_id": turn.ChatId.String(),
				"error":   err.Error(),
			})
		}
	})
	return nil
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.GetHistory(ctx.UserContext(), userId, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.DeleteChat(ctx.UserContext(), userId, chatId); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *chatController) UpdateVisibility(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateVisibilityRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateVisibility(ctx.UserContext(), userId, chatId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) DeleteTrailingMessages(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	after, err := timeQuery(ctx, "after")
	if err != nil {
		return err
	}

	res, err := c.service.DeleteTrailingMessages(ctx.UserContext(), userId, chatId, after)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) Stop(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	chatId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	stopped := c.service.StopTurn(ctx.UserContext(), userId, chatId)
	return ctx.JSON(dto.StopTurnResponse{Stopped: stopped})
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListChats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
