package service

import (
	"errors"
	"testing"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/tools"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeResponseMessages(t *testing.T) {
	weather := llm.ToolCall{ID: "c1", Name: tools.GetWeather, Arguments: `{}`}
	doc := llm.ToolCall{ID: "c2", Name: tools.CreateDocument, Arguments: `{}`}

	tests := []struct {
		name     string
		messages []responseMessage
		wantText []string
	}{
		{
			name:     "plain text is kept",
			messages: []responseMessage{{Text: "hi"}},
			wantText: []string{"hi"},
		},
		{
			name: "resolved call is kept",
			messages: []responseMessage{
				{Calls: []llm.ToolCall{weather}, Results: []tools.Result{{CallID: "c1"}}},
				{Text: "sunny"},
			},
			wantText: []string{"", "sunny"},
		},
		{
			name: "unresolved trailing call is dropped",
			messages: []responseMessage{
				{Text: "let me check", Calls: []llm.ToolCall{weather}},
			},
			wantText: []string{},
		},
		{
			name: "failed call is dropped",
			messages: []responseMessage{
				{Text: "writing", Calls: []llm.ToolCall{doc}, Results: []tools.Result{{CallID: "c2", Err: errors.New("boom")}}},
				{Text: "sorry"},
			},
			wantText: []string{"sorry"},
		},
		{
			name: "one missing result of two drops the step",
			messages: []responseMessage{
				{Calls: []llm.ToolCall{weather, doc}, Results: []tools.Result{{CallID: "c1"}}},
			},
			wantText: []string{},
		},
		{
			name:     "empty step is dropped",
			messages: []responseMessage{{}},
			wantText: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeResponseMessages(tt.messages)
			texts := make([]string, len(got))
			for i, m := range got {
				texts[i] = m.Text
			}
			assert.Equal(t, tt.wantText, texts)
		})
	}
}
