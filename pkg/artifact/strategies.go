package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"ai-chat-be/pkg/llm"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type textStrategy struct {
	provider llm.LLMProvider
}

func (s *textStrategy) Kind() Kind { return KindText }

func (s *textStrategy) Generate(ctx context.Context, req Request) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		system := textPrompt
		if req.IsUpdate() {
			system = UpdatePrompt(*req.Previous, KindText)
		}

		stream, err := s.provider.StreamText(ctx, llm.TextRequest{
			System:   system,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: req.Title}},
		}, llm.WithModel(req.Model))
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer stream.Close()

		for {
			c, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			if c.Delta == "" {
				continue
			}
			if !yield(Chunk{Content: c.Delta}, nil) {
				return
			}
		}
	}
}

var codeSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"code": {Type: jsonschema.String},
	},
	Required: []string{"code"},
}

// runnable snippets favour the likeliest tokens
const codeTemperature = 0.2

type codeStrategy struct {
	provider llm.LLMProvider
}

func (s *codeStrategy) Kind() Kind { return KindCode }

// Generate emits the whole snippet every time it grows; code-delta replaces the draft.
func (s *codeStrategy) Generate(ctx context.Context, req Request) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		system := codePrompt
		if req.IsUpdate() {
			system = UpdatePrompt(*req.Previous, KindCode)
		}

		stream, err := s.provider.StreamObject(ctx, llm.ObjectRequest{
			System:     system,
			Prompt:     req.Title,
			SchemaName: "code",
			Schema:     codeSchema,
		}, llm.WithModel(req.Model), llm.WithTemperature(codeTemperature))
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer stream.Close()

		var last string
		for {
			raw, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Chunk{}, err)
				return
			}

			var obj struct {
				Code string `json:"code"`
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				yield(Chunk{}, err)
				return
			}
			if obj.Code == "" || obj.Code == last {
				continue
			}
			last = obj.Code
			if !yield(Chunk{Content: obj.Code, Replace: true}, nil) {
				return
			}
		}
	}
}

type imageStrategy struct {
	provider llm.LLMProvider
}

func (s *imageStrategy) Kind() Kind { return KindImage }

// Generate makes one image from the title. Updates regenerate from the new title; the
// previous image is not an input.
func (s *imageStrategy) Generate(ctx context.Context, req Request) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		b64, err := s.provider.GenerateImage(ctx, req.Title)
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		yield(Chunk{Content: b64, Replace: true}, nil)
	}
}
