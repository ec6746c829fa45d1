package implementation

import (
	"errors"

	"ai-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

var errMissingSpecification = errors.New("refusing to delete without a specification")

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
