package llm

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported on the last chunk of a text stream.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// ToolCall is a model-requested invocation. Arguments is the raw JSON object.
type ToolCall struct {
	ID        string `json:"toolCallId"`
	Name      string `json:"toolName"`
	Arguments string `json:"args"`
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant only
	ToolCallID string     // tool only
	Name       string     // tool only
}

// Tool describes a callable function the model may request.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

type TextRequest struct {
	System   string
	Messages []Message
	Tools    []Tool
}

type ObjectRequest struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     jsonschema.Definition
}

// TextChunk is one element of a text stream: either a delta, or the closing chunk carrying
// the finish reason and every tool call of the step.
type TextChunk struct {
	Delta        string
	ToolCalls    []ToolCall
	FinishReason string
}

// TextStream yields chunks until io.EOF.
type TextStream interface {
	Recv() (TextChunk, error)
	Close() error
}

// ObjectStream yields successively more complete JSON values until io.EOF. Every value
// is valid JSON; the last one is the full object.
type ObjectStream interface {
	Recv() (json.RawMessage, error)
	Close() error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func ApplyOptions(options ...Option) Options {
	var o Options
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// StreamText streams a chat completion with the given tools bound.
	StreamText(ctx context.Context, req TextRequest, options ...Option) (TextStream, error)

	// StreamObject streams a completion constrained to req.Schema.
	StreamObject(ctx context.Context, req ObjectRequest, options ...Option) (ObjectStream, error)

	// GenerateImage returns a base64-encoded image for prompt.
	GenerateImage(ctx context.Context, prompt string, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, system, prompt string, options ...Option) (string, error)
}
