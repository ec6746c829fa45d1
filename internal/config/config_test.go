package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAX_STEPS", "")
	t.Setenv("TURN_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, 5, cfg.Ai.MaxSteps)
	assert.Equal(t, 60*time.Second, cfg.Ai.TurnTimeout)
	assert.Equal(t, "privy.io", cfg.Auth.Issuer)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.Weather.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_STEPS", "3")
	t.Setenv("TURN_TIMEOUT", "15s")
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_ISSUER", "example.test")

	cfg := Load()

	assert.Equal(t, 3, cfg.Ai.MaxSteps)
	assert.Equal(t, 15*time.Second, cfg.Ai.TurnTimeout)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "example.test", cfg.Auth.Issuer)
}
