package constant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(Soltar)

	assert.True(t, strings.HasPrefix(prompt, Soltar.System))
	assert.Contains(t, prompt, "Merlin (The Cosmic Sage) (Master of Balance)")
	assert.Contains(t, prompt, "- "+Soltar.Lore[4])
	assert.NotContains(t, prompt, Soltar.Lore[5])
	assert.False(t, strings.HasSuffix(prompt, "\n"))
}
