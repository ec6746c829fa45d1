package controller

import (
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	"ai-chat-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Sync(ctx *fiber.Ctx) error
	GetModels(ctx *fiber.Ctx) error
}

type userController struct {
	service service.IUserService
	models  *llm.Registry
}

func NewUserController(service service.IUserService, models *llm.Registry) IUserController {
	return &userController{service: service, models: models}
}

func (c *userController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/user/v1")
	h.Use(auth)
	h.Post("sync", c.Sync)

	r.Get("/models", auth, c.GetModels)
}

func (c *userController) Sync(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SyncUserRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apierr.Validation("invalid request body: %v", err)
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Sync(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *userController) GetModels(ctx *fiber.Ctx) error {
	models := c.models.All()
	res := make([]dto.ModelResponse, len(models))
	for i, m := range models {
		res[i] = dto.ModelResponse{
			Id:            m.ID,
			Label:         m.Label,
			ApiIdentifier: m.APIIdentifier,
			Description:   m.Description,
		}
	}
	return ctx.JSON(res)
}
