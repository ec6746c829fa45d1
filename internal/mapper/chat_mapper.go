package mapper

import (
	"encoding/json"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Chat Mappers

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}
	return &entity.Chat{
		Id:         c.Id,
		UserId:     c.UserId,
		Title:      c.Title,
		Visibility: c.Visibility,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}
	visibility := c.Visibility
	if visibility == "" {
		visibility = entity.VisibilityPrivate
	}
	return &model.Chat{
		Id:         c.Id,
		UserId:     c.UserId,
		Title:      c.Title,
		Visibility: visibility,
		CreatedAt:  c.CreatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	return &entity.Message{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Role:      msg.Role,
		Content:   json.RawMessage(msg.Content),
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	return &model.Message{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		Role:      msg.Role,
		Content:   datatypes.JSON(msg.Content),
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(msgs []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(msgs))
	for i, msg := range msgs {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}

func (m *ChatMapper) MessagesToModels(msgs []*entity.Message) []*model.Message {
	models := make([]*model.Message, len(msgs))
	for i, msg := range msgs {
		models[i] = m.MessageToModel(msg)
	}
	return models
}
