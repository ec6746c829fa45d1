package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	Id              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	WalletAddress   string    `json:"walletAddress"`
	WalletPublicKey *string   `json:"walletPublicKey,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SyncUserRequest fields are optional; only the ones sent are updated.
type SyncUserRequest struct {
	Email           string  `json:"email" validate:"omitempty,email"`
	WalletPublicKey *string `json:"walletPublicKey" validate:"omitempty,min=1"`
}

type ModelResponse struct {
	Id            string `json:"id"`
	Label         string `json:"label"`
	ApiIdentifier string `json:"apiIdentifier"`
	Description   string `json:"description"`
}
