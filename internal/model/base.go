package model

import "github.com/google/uuid"

// ensureID assigns a fresh id when the caller left it empty.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
