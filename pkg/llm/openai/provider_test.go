package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func delta(body string) string {
	return `{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":` + body + `}]}`
}

func TestStreamText_DeltasAndToolCalls(t *testing.T) {
	srv := sseServer(t,
		delta(`{"content":"Let me "}`),
		delta(`{"content":"check."}`),
		delta(`{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"getWeather","arguments":"{\"latitude\":"}}]}`),
		delta(`{"tool_calls":[{"index":0,"function":{"arguments":"52.5,\"longitude\":13.4}"}}]}`),
		`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	p := NewOpenAIProvider("key", srv.URL+"/v1", "gpt-4o-mini", "dall-e-3")
	stream, err := p.StreamText(context.Background(), llm.TextRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "weather?"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	var last llm.TextChunk
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		text += chunk.Delta
		last = chunk
	}

	assert.Equal(t, "Let me check.", text)
	assert.Equal(t, llm.FinishToolCalls, last.FinishReason)
	require.Len(t, last.ToolCalls, 1)
	assert.Equal(t, llm.ToolCall{ID: "call_1", Name: "getWeather", Arguments: `{"latitude":52.5,"longitude":13.4}`}, last.ToolCalls[0])
}

func TestStreamObject_YieldsGrowingValues(t *testing.T) {
	srv := sseServer(t,
		delta(`{"content":"{\"code\": \"print("}`),
		delta(`{"content":"1)\"}"}`),
	)

	p := NewOpenAIProvider("key", srv.URL+"/v1", "gpt-4o-mini", "dall-e-3")
	stream, err := p.StreamObject(context.Background(), llm.ObjectRequest{Prompt: "code", SchemaName: "code"})
	require.NoError(t, err)
	defer stream.Close()

	var codes []string
	for {
		raw, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		var obj struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(raw, &obj))
		codes = append(codes, obj.Code)
	}

	assert.Equal(t, []string{"print(", "print(1)"}, codes)
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", srv.URL+"/v1", "gpt-4o-mini", "dall-e-3")
	b64, err := p.GenerateImage(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", b64)
}
