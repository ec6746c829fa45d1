package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Chat struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Title      string    `gorm:"type:text;not null"`
	Visibility string    `gorm:"type:varchar(16);not null;default:'private'"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.Id)
	return nil
}

type Message struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ChatId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role      string         `gorm:"type:varchar(16);not null"`
	Content   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.Id)
	return nil
}
