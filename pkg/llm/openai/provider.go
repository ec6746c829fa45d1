package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"ai-chat-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client       *goopenai.Client
	defaultModel string
	imageModel   string
}

// Ensure OpenAIProvider implements LLMProvider
var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider targets any OpenAI-compatible endpoint. An empty baseURL keeps the
// library default.
func NewOpenAIProvider(apiKey, baseURL, defaultModel, imageModel string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:       goopenai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		imageModel:   imageModel,
	}
}

func (p *OpenAIProvider) request(system string, messages []llm.Message, opts llm.Options) goopenai.ChatCompletionRequest {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	return goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(system, messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
}

func (p *OpenAIProvider) StreamText(ctx context.Context, req llm.TextRequest, options ...llm.Option) (llm.TextStream, error) {
	chatReq := p.request(req.System, req.Messages, llm.ApplyOptions(options...))
	chatReq.Stream = true
	for _, t := range req.Tools {
		params := t.Parameters
		chatReq.Tools = append(chatReq.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  &params,
			},
		})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("creating chat completion stream: %w", err)
	}
	return &textStream{stream: stream, calls: make(map[int]*llm.ToolCall)}, nil
}

func (p *OpenAIProvider) StreamObject(ctx context.Context, req llm.ObjectRequest, options ...llm.Option) (llm.ObjectStream, error) {
	messages := []llm.Message{{Role: llm.RoleUser, Content: req.Prompt}}
	chatReq := p.request(req.System, messages, llm.ApplyOptions(options...))
	chatReq.Stream = true
	schema := req.Schema
	chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:   req.SchemaName,
			Schema: &schema,
		},
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("creating object stream: %w", err)
	}
	return &objectStream{stream: stream}, nil
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(options...)
	model := opts.Model
	if model == "" {
		model = p.imageModel
	}

	resp, err := p.client.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          model,
		N:              1,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("creating image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", errors.New("image response contained no data")
	}
	return resp.Data[0].B64JSON, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, system, prompt string, options ...llm.Option) (string, error) {
	chatReq := p.request(system, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, llm.ApplyOptions(options...))

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ChatCompletionResponse returned no choice: %+v", resp)
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(system string, messages []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		msg := goopenai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// textStream assembles tool-call fragments, which arrive split across chunks and keyed
// by index, and hands them out with the finish reason.
type textStream struct {
	stream *goopenai.ChatCompletionStream
	calls  map[int]*llm.ToolCall
	done   bool
}

func (s *textStream) Close() error {
	s.stream.Close()
	return nil
}

func (s *textStream) Recv() (llm.TextChunk, error) {
	for {
		if s.done {
			return llm.TextChunk{}, io.EOF
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			if len(s.calls) > 0 {
				return llm.TextChunk{ToolCalls: s.toolCalls(), FinishReason: llm.FinishToolCalls}, nil
			}
			return llm.TextChunk{}, io.EOF
		}
		if err != nil {
			return llm.TextChunk{}, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		for _, tc := range choice.Delta.ToolCalls {
			s.accumulate(tc)
		}
		if choice.FinishReason != "" {
			s.done = true
			return llm.TextChunk{
				Delta:        choice.Delta.Content,
				ToolCalls:    s.toolCalls(),
				FinishReason: string(choice.FinishReason),
			}, nil
		}
		if choice.Delta.Content != "" {
			return llm.TextChunk{Delta: choice.Delta.Content}, nil
		}
	}
}

func (s *textStream) accumulate(tc goopenai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	call, ok := s.calls[idx]
	if !ok {
		call = &llm.ToolCall{}
		s.calls[idx] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments
}

func (s *textStream) toolCalls() []llm.ToolCall {
	if len(s.calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(s.calls))
	for i := range s.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]llm.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *s.calls[i])
	}
	return out
}

// objectStream re-parses the growing JSON text after every delta and yields each new
// valid completion of it.
type objectStream struct {
	stream *goopenai.ChatCompletionStream
	buf    strings.Builder
	last   string
	done   bool
}

func (s *objectStream) Close() error {
	s.stream.Close()
	return nil
}

func (s *objectStream) Recv() (json.RawMessage, error) {
	for {
		if s.done {
			return nil, io.EOF
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			final := s.buf.String()
			if !json.Valid([]byte(final)) {
				return nil, fmt.Errorf("structured output is not valid JSON: %q", final)
			}
			if final == s.last {
				return nil, io.EOF
			}
			s.last = final
			return json.RawMessage(final), nil
		}
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}

		s.buf.WriteString(resp.Choices[0].Delta.Content)
		completed, ok := llm.CompletePartialJSON(s.buf.String())
		if !ok || completed == s.last {
			continue
		}
		s.last = completed
		return json.RawMessage(completed), nil
	}
}
