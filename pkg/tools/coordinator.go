// Package tools executes the tool calls a model requests during a turn. Document tools
// stream their generation through the turn's Multiplexer as artifact events.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/artifact"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/stream"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	GetWeather         = "getWeather"
	CreateDocument     = "createDocument"
	UpdateDocument     = "updateDocument"
	RequestSuggestions = "requestSuggestions"
)

// WeatherSource returns the raw forecast payload for a coordinate.
type WeatherSource interface {
	Current(ctx context.Context, latitude, longitude float64) (json.RawMessage, error)
}

type Coordinator struct {
	provider   llm.LLMProvider
	strategies artifact.Registry
	uowFactory unitofwork.RepositoryFactory
	weather    WeatherSource
	events     events.Publisher
	logger     logger.ILogger
}

func NewCoordinator(
	provider llm.LLMProvider,
	uowFactory unitofwork.RepositoryFactory,
	weather WeatherSource,
	publisher events.Publisher,
	log logger.ILogger,
) *Coordinator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Coordinator{
		provider:   provider,
		strategies: artifact.NewRegistry(provider),
		uowFactory: uowFactory,
		weather:    weather,
		events:     publisher,
		logger:     log,
	}
}

// Session is the tool set bound to one turn: its requester, model and output stream.
// Calls must be executed one at a time.
type Session struct {
	c      *Coordinator
	userID uuid.UUID
	model  string
	mux    *stream.Multiplexer
}

func (c *Coordinator) Bind(userID uuid.UUID, model string, mux *stream.Multiplexer) *Session {
	return &Session{c: c, userID: userID, model: model, mux: mux}
}

// Result is the outcome of one tool call as returned to the model loop.
type Result struct {
	CallID string
	Name   string
	Output any
	Err    error
}

// Completed reports whether the call produced a result the conversation can be replayed with.
func (r Result) Completed() bool {
	return r.Err == nil
}

// Content is the JSON handed back to the model: the output, or {"error": "..."}.
func (r Result) Content() string {
	var v any = r.Output
	if r.Err != nil {
		v = map[string]string{"error": r.Err.Error()}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

// Execute runs exactly one call. Every failure comes back inside the Result; the caller
// decides from ctx and the multiplexer whether the turn can go on.
func (s *Session) Execute(ctx context.Context, call llm.ToolCall) Result {
	ctx, span := otel.Tracer("ai-chat-be/tools").Start(ctx, "tool."+call.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.call_id", call.ID),
		attribute.String("user.id", s.userID.String()),
	)

	out, err := s.dispatch(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.c.logger.Warn("ToolCoordinator", "Tool call failed", map[string]interface{}{
			"tool":    call.Name,
			"call_id": call.ID,
			"error":   err.Error(),
		})
	}
	return Result{CallID: call.ID, Name: call.Name, Output: out, Err: err}
}

func (s *Session) dispatch(ctx context.Context, call llm.ToolCall) (any, error) {
	switch call.Name {
	case GetWeather:
		var args weatherArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return s.getWeather(ctx, args)
	case CreateDocument:
		var args createDocumentArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return s.createDocument(ctx, args)
	case UpdateDocument:
		var args updateDocumentArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return s.updateDocument(ctx, args)
	case RequestSuggestions:
		var args requestSuggestionsArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return s.requestSuggestions(ctx, args)
	}
	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

func decodeArgs(call llm.ToolCall, dst any) error {
	if call.Arguments == "" {
		return fmt.Errorf("%s: missing arguments", call.Name)
	}
	if err := json.Unmarshal([]byte(call.Arguments), dst); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", call.Name, err)
	}
	return nil
}

func (s *Session) getWeather(ctx context.Context, args weatherArgs) (any, error) {
	if s.c.weather == nil {
		return nil, errors.New("weather lookup is not configured")
	}
	return s.c.weather.Current(ctx, args.Latitude, args.Longitude)
}

func (s *Session) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := s.c.events.Publish(ctx, events.New(eventType, s.userID, data)); err != nil {
		s.c.logger.Warn("ToolCoordinator", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
