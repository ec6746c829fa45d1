package artifact

import (
	"context"
	"iter"

	"ai-chat-be/pkg/llm"
)

type Kind string

const (
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindImage Kind = "image"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindText, KindCode, KindImage:
		return k, true
	}
	return "", false
}

// Chunk is one piece of generated content. A Replace chunk carries the whole draft so far.
type Chunk struct {
	Content string
	Replace bool
}

// Accumulator is the draft of a single artifact. It is a value: Run takes one in and hands
// the updated one back, so two generations never share a draft.
type Accumulator struct {
	Content string
}

func (a Accumulator) Apply(c Chunk) Accumulator {
	if c.Replace {
		return Accumulator{Content: c.Content}
	}
	return Accumulator{Content: a.Content + c.Content}
}

// Request describes one generation. Previous is set when updating an existing version.
type Request struct {
	Title    string
	Model    string
	Previous *string
}

func (r Request) IsUpdate() bool { return r.Previous != nil }

// Strategy produces the content of one artifact kind as a lazy, finite sequence of chunks.
type Strategy interface {
	Kind() Kind
	Generate(ctx context.Context, req Request) iter.Seq2[Chunk, error]
}

// Registry maps each kind to its strategy.
type Registry map[Kind]Strategy

func NewRegistry(provider llm.LLMProvider) Registry {
	return Registry{
		KindText:  &textStrategy{provider: provider},
		KindCode:  &codeStrategy{provider: provider},
		KindImage: &imageStrategy{provider: provider},
	}
}

// Run drains the strategy for req into acc, calling emit after every chunk. The returned
// accumulator holds everything applied before the first error.
func Run(ctx context.Context, s Strategy, req Request, acc Accumulator, emit func(Chunk) error) (Accumulator, error) {
	for chunk, err := range s.Generate(ctx, req) {
		if err != nil {
			return acc, err
		}
		acc = acc.Apply(chunk)
		if err := emit(chunk); err != nil {
			return acc, err
		}
	}
	return acc, ctx.Err()
}
