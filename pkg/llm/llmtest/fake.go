// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"ai-chat-be/pkg/llm"
)

// TextScript is replayed by one StreamText call. Err, when set, is returned after Chunks.
type TextScript struct {
	Chunks []llm.TextChunk
	Err    error
}

// ObjectScript is replayed by one StreamObject call. Values must be valid JSON.
type ObjectScript struct {
	Values []string
	Err    error
}

type FakeProvider struct {
	mu sync.Mutex

	Texts   []TextScript
	Objects []ObjectScript

	Image       string
	ImageErr    error
	Title       string
	GenerateErr error

	TextRequests   []llm.TextRequest
	ObjectRequests []llm.ObjectRequest
	ImagePrompts   []string

	// options each call received, in call order
	TextOptions     []llm.Options
	ObjectOptions   []llm.Options
	GenerateOptions []llm.Options
}

var _ llm.LLMProvider = &FakeProvider{}

// Stop is a convenience script: the given deltas then a stop.
func Stop(deltas ...string) TextScript {
	s := TextScript{}
	for _, d := range deltas {
		s.Chunks = append(s.Chunks, llm.TextChunk{Delta: d})
	}
	s.Chunks = append(s.Chunks, llm.TextChunk{FinishReason: llm.FinishStop})
	return s
}

// Call is a convenience script: one step that ends with the given tool calls.
func Call(calls ...llm.ToolCall) TextScript {
	return TextScript{Chunks: []llm.TextChunk{{ToolCalls: calls, FinishReason: llm.FinishToolCalls}}}
}

func (f *FakeProvider) StreamText(ctx context.Context, req llm.TextRequest, options ...llm.Option) (llm.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.TextRequests = append(f.TextRequests, req)
	f.TextOptions = append(f.TextOptions, llm.ApplyOptions(options...))
	script := Stop("ok")
	if len(f.Texts) > 0 {
		script, f.Texts = f.Texts[0], f.Texts[1:]
	}
	return &textStream{ctx: ctx, script: script}, nil
}

func (f *FakeProvider) StreamObject(ctx context.Context, req llm.ObjectRequest, options ...llm.Option) (llm.ObjectStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ObjectRequests = append(f.ObjectRequests, req)
	f.ObjectOptions = append(f.ObjectOptions, llm.ApplyOptions(options...))
	script := ObjectScript{Values: []string{"{}"}}
	if len(f.Objects) > 0 {
		script, f.Objects = f.Objects[0], f.Objects[1:]
	}
	return &objectStream{ctx: ctx, script: script}, nil
}

func (f *FakeProvider) GenerateImage(ctx context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ImagePrompts = append(f.ImagePrompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Image, f.ImageErr
}

func (f *FakeProvider) Generate(ctx context.Context, _, prompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.GenerateOptions = append(f.GenerateOptions, llm.ApplyOptions(options...))
	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	if f.Title != "" {
		return f.Title, nil
	}
	return prompt, nil
}

type textStream struct {
	ctx    context.Context
	script TextScript
	pos    int
}

func (s *textStream) Recv() (llm.TextChunk, error) {
	if err := s.ctx.Err(); err != nil {
		return llm.TextChunk{}, err
	}
	if s.pos < len(s.script.Chunks) {
		c := s.script.Chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.script.Err != nil {
		return llm.TextChunk{}, s.script.Err
	}
	return llm.TextChunk{}, io.EOF
}

func (s *textStream) Close() error { return nil }

type objectStream struct {
	ctx    context.Context
	script ObjectScript
	pos    int
}

func (s *objectStream) Recv() (json.RawMessage, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos < len(s.script.Values) {
		v := s.script.Values[s.pos]
		s.pos++
		return json.RawMessage(v), nil
	}
	if s.script.Err != nil {
		return nil, s.script.Err
	}
	return nil, io.EOF
}

func (s *objectStream) Close() error { return nil }
