package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByWalletAddress struct {
	WalletAddress string
}

func (s ByWalletAddress) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("wallet_address = ?", s.WalletAddress)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
