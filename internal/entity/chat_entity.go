package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

type Chat struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	Title      string
	Visibility string
	CreatedAt  time.Time
}

func (c *Chat) IsPrivate() bool {
	return c.Visibility != VisibilityPublic
}

// Message content is stored as JSON: a plain string for user messages, a list of parts for
// assistant and tool messages.
type Message struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	Role      string
	Content   json.RawMessage
	CreatedAt time.Time
}
