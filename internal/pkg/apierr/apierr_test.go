package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found matches sentinel", NotFound("chat %s", "c1"), ErrNotFound, true},
		{"wrapped unauthorized matches", fmt.Errorf("tool: %w", Unauthorized("owner mismatch")), ErrUnauthorized, true},
		{"auth is not unauthorized", Auth("missing token"), ErrUnauthorized, false},
		{"plain error", errors.New("boom"), ErrPersistence, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").Status)
	assert.Equal(t, http.StatusInternalServerError, Persistence(errors.New("db down")).Status)
	assert.Equal(t, "db down", Persistence(errors.New("db down")).Error())

	var apiErr *Error
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", NotFound("doc")), &apiErr))
	assert.Equal(t, CodeNotFound, apiErr.Code)
}
