package controller

import (
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Show(ctx *fiber.Ctx) error
	DeleteAfter(ctx *fiber.Ctx) error
	GetSuggestions(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/document/v1")
	h.Use(auth)
	h.Get(":id", c.Show)
	h.Delete(":id", c.DeleteAfter)

	s := r.Group("/suggestion/v1")
	s.Use(auth)
	s.Get("", c.GetSuggestions)
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.GetVersions(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *documentController) DeleteAfter(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	after, err := timeQuery(ctx, "after")
	if err != nil {
		return err
	}

	res, err := c.service.DeleteVersionsAfter(ctx.UserContext(), userId, id, after)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *documentController) GetSuggestions(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	documentId, err := uuid.Parse(ctx.Query("documentId"))
	if err != nil {
		return apierr.Validation("invalid documentId %q", ctx.Query("documentId"))
	}

	res, err := c.service.GetSuggestions(ctx.UserContext(), userId, documentId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
