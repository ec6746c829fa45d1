package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	PartText       = "text"
	PartToolCall   = "tool-call"
	PartToolResult = "tool-result"

	InvocationResult = "result"
)

// ToolInvocationDTO is a tool call as the client replays it inside an assistant message.
type ToolInvocationDTO struct {
	State      string          `json:"state"`
	ToolCallId string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type ChatMessageDTO struct {
	Id              string              `json:"id,omitempty"`
	Role            string              `json:"role" validate:"required"`
	Content         string              `json:"content"`
	ToolInvocations []ToolInvocationDTO `json:"toolInvocations,omitempty"`
}

type StartTurnRequest struct {
	Id       string           `json:"id" validate:"required"`
	ModelId  string           `json:"modelId" validate:"required"`
	Messages []ChatMessageDTO `json:"messages" validate:"dive"`
}

// MessagePart is one element of a stored assistant or tool message.
type MessagePart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallId string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type ChatResponse struct {
	Id         uuid.UUID `json:"id"`
	UserId     uuid.UUID `json:"userId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}

type MessageResponse struct {
	Id        uuid.UUID       `json:"id"`
	ChatId    uuid.UUID       `json:"chatId"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ChatHistoryResponse struct {
	Chat     ChatResponse      `json:"chat"`
	Messages []MessageResponse `json:"messages"`
}

type UpdateVisibilityRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=private public"`
}

type DeleteMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}

type StopTurnResponse struct {
	Stopped bool `json:"stopped"`
}
