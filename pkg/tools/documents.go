package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/pkg/artifact"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const suggestionsPrompt = "You are a help writing assistant. Given a piece of writing, please offer suggestions to improve " +
	"the piece of writing and describe the change. It is very important for the edits to contain full sentences instead " +
	"of just words. Max 5 suggestions."

var suggestionsSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"suggestions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"originalText":  {Type: jsonschema.String},
					"suggestedText": {Type: jsonschema.String},
					"description":   {Type: jsonschema.String},
				},
				Required: []string{"originalText", "suggestedText", "description"},
			},
		},
	},
	Required: []string{"suggestions"},
}

// DocumentResult is what createDocument and updateDocument return to the model.
type DocumentResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type SuggestionResult struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       *string   `json:"description"`
	IsResolved        bool      `json:"isResolved"`
}

func (s *Session) createDocument(ctx context.Context, args createDocumentArgs) (any, error) {
	if args.Title == "" {
		return nil, apierr.Validation("createDocument: title is required")
	}
	kind, ok := artifact.ParseKind(args.Kind)
	if !ok {
		return nil, apierr.Validation("createDocument: unknown kind %q", args.Kind)
	}

	doc := &entity.Document{
		Id:     uuid.New(),
		UserId: s.userID,
		Title:  args.Title,
		Kind:   string(kind),
	}

	content, err := s.generate(ctx, doc.Id, args.Title, kind, nil)
	if err != nil {
		return nil, err
	}
	doc.Content = content
	doc.CreatedAt = time.Now().UTC()

	if err := s.saveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResult(doc), nil
}

func (s *Session) updateDocument(ctx context.Context, args updateDocumentArgs) (any, error) {
	current, err := s.ownedDocument(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	// an artifact id streams once per turn; a second pass would break the frame order
	if s.mux.Used(current.Id.String()) {
		return nil, apierr.Validation("updateDocument: document %s was already streamed in this turn", current.Id)
	}

	kindStr := args.Kind
	if kindStr == "" {
		kindStr = current.Kind
	}
	kind, ok := artifact.ParseKind(kindStr)
	if !ok {
		return nil, apierr.Validation("updateDocument: unknown kind %q", args.Kind)
	}
	title := args.Title
	if title == "" {
		title = current.Title
	}

	previous := current.Content
	content, err := s.generate(ctx, current.Id, title, kind, &previous)
	if err != nil {
		return nil, err
	}

	// a version is identified by its timestamp, so it must move forward
	createdAt := time.Now().UTC()
	if !createdAt.After(current.CreatedAt) {
		createdAt = current.CreatedAt.Add(time.Microsecond)
	}

	doc := &entity.Document{
		Id:        current.Id,
		CreatedAt: createdAt,
		UserId:    s.userID,
		Title:     title,
		Kind:      string(kind),
		Content:   content,
	}
	if err := s.saveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return toDocumentResult(doc), nil
}

func (s *Session) requestSuggestions(ctx context.Context, args requestSuggestionsArgs) (any, error) {
	doc, err := s.ownedDocument(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}

	prompt, err := json.Marshal(map[string]string{"title": doc.Title, "content": doc.Content})
	if err != nil {
		return nil, err
	}

	objects, err := s.c.provider.StreamObject(ctx, llm.ObjectRequest{
		System:     suggestionsPrompt,
		Prompt:     string(prompt),
		SchemaName: "suggestions",
		Schema:     suggestionsSchema,
	}, llm.WithModel(s.model))
	if err != nil {
		return nil, s.upstreamErr(ctx, err)
	}
	defer objects.Close()

	var final json.RawMessage
	for {
		raw, err := objects.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, s.upstreamErr(ctx, err)
		}
		final = raw
	}

	var parsed struct {
		Suggestions []struct {
			OriginalText  string  `json:"originalText"`
			SuggestedText string  `json:"suggestedText"`
			Description   *string `json:"description"`
		} `json:"suggestions"`
	}
	if len(final) > 0 {
		if err := json.Unmarshal(final, &parsed); err != nil {
			return nil, apierr.UpstreamModel(fmt.Errorf("malformed suggestions: %w", err))
		}
	}

	now := time.Now().UTC()
	suggestions := make([]*entity.Suggestion, 0, len(parsed.Suggestions))
	for _, item := range parsed.Suggestions {
		if item.OriginalText == "" || item.SuggestedText == "" {
			continue
		}
		description := item.Description
		if description != nil && *description == "" {
			description = nil
		}
		suggestions = append(suggestions, &entity.Suggestion{
			Id:                uuid.New(),
			DocumentId:        doc.Id,
			DocumentCreatedAt: doc.CreatedAt,
			OriginalText:      item.OriginalText,
			SuggestedText:     item.SuggestedText,
			Description:       description,
			UserId:            s.userID,
			CreatedAt:         now,
		})
	}

	if len(suggestions) > 0 {
		uow := s.c.uowFactory.NewUnitOfWork(ctx)
		if err := uow.SuggestionRepository().CreateBatch(ctx, suggestions); err != nil {
			return nil, apierr.Persistence(err)
		}
	}

	out := make([]SuggestionResult, len(suggestions))
	for i, sg := range suggestions {
		out[i] = SuggestionResult{
			ID:                sg.Id.String(),
			DocumentID:        sg.DocumentId.String(),
			DocumentCreatedAt: sg.DocumentCreatedAt,
			OriginalText:      sg.OriginalText,
			SuggestedText:     sg.SuggestedText,
			Description:       sg.Description,
			IsResolved:        sg.IsResolved,
		}
	}
	return out, nil
}

// ownedDocument loads the current version of id and checks it belongs to the requester.
func (s *Session) ownedDocument(ctx context.Context, id string) (*entity.Document, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, apierr.NotFound("document %q not found", id)
	}

	uow := s.c.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindLatest(ctx, docID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if doc == nil {
		return nil, apierr.NotFound("document %s not found", docID)
	}
	if doc.UserId != s.userID {
		return nil, apierr.Unauthorized("document %s belongs to another user", docID)
	}
	return doc, nil
}

// generate streams one artifact: id, title, kind, clear, the kind's deltas, finish. On any
// failure the artifact is aborted without a finish frame.
func (s *Session) generate(ctx context.Context, id uuid.UUID, title string, kind artifact.Kind, previous *string) (string, error) {
	strategy, ok := s.c.strategies[kind]
	if !ok {
		return "", apierr.Validation("no generator for kind %q", kind)
	}
	deltaType, _ := stream.DeltaTypeFor(string(kind))

	w, err := s.mux.OpenArtifact(id.String())
	if err != nil {
		return "", err
	}

	if err := w.Title(title); err != nil {
		w.Abort()
		return "", err
	}
	if err := w.Kind(string(kind)); err != nil {
		w.Abort()
		return "", err
	}
	if err := w.Clear(); err != nil {
		w.Abort()
		return "", err
	}

	acc, err := artifact.Run(ctx, strategy, artifact.Request{
		Title:    title,
		Model:    s.model,
		Previous: previous,
	}, artifact.Accumulator{}, func(c artifact.Chunk) error {
		return w.Delta(deltaType, c.Content)
	})
	if err != nil {
		w.Abort()
		return "", s.upstreamErr(ctx, err)
	}

	if err := w.Finish(); err != nil {
		w.Abort()
		return "", err
	}
	return acc.Content, nil
}

func (s *Session) saveDocument(ctx context.Context, doc *entity.Document) error {
	uow := s.c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return apierr.Persistence(err)
	}

	s.publish(ctx, events.DocumentSaved, map[string]interface{}{
		"document_id": doc.Id.String(),
		"title":       doc.Title,
		"kind":        doc.Kind,
		"created_at":  doc.CreatedAt,
	})
	return nil
}

// upstreamErr classifies a generation failure. Cancellation and a broken client stream
// pass through untouched so the turn can stop.
func (s *Session) upstreamErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if muxErr := s.mux.Err(); muxErr != nil {
		return muxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apierr.UpstreamModel(err)
}

func toDocumentResult(doc *entity.Document) DocumentResult {
	return DocumentResult{
		ID:      doc.Id.String(),
		Title:   doc.Title,
		Kind:    doc.Kind,
		Content: doc.Content,
	}
}
