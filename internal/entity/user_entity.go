package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id              uuid.UUID
	Email           string
	WalletAddress   string
	WalletPublicKey *string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Identity is what a verified bearer credential says about the caller.
type Identity struct {
	Subject       string
	WalletAddress string
}
