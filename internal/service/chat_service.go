package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/memory"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/stream"
	"ai-chat-be/pkg/tools"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type IChatService interface {
	// StartTurn authenticates nothing itself: userId comes from the JWT middleware. It
	// resolves the model, finds or creates the chat and persists the inbound message.
	// Nothing has been streamed when it returns.
	StartTurn(ctx context.Context, userId uuid.UUID, req *dto.StartTurnRequest) (*Turn, error)
	// StreamTurn runs the model loop of a started turn, writing every frame to sink, and
	// persists the sanitized response. It returns once the turn is over.
	StreamTurn(ctx context.Context, turn *Turn, sink stream.Sink) error
	HandleTurn(ctx context.Context, userId uuid.UUID, req *dto.StartTurnRequest, sink stream.Sink) error

	GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatHistoryResponse, error)
	ListChats(ctx context.Context, userId uuid.UUID) ([]dto.ChatResponse, error)
	DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
	UpdateVisibility(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.UpdateVisibilityRequest) (*dto.ChatResponse, error)
	DeleteTrailingMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, after time.Time) (*dto.DeleteMessagesResponse, error)
	StopTurn(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) bool
}

// Turn is a conversation turn whose inbound message is already persisted.
type Turn struct {
	ChatId        uuid.UUID
	UserId        uuid.UUID
	UserMessageId uuid.UUID
	Model         llm.Model
	History       []llm.Message
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	provider     llm.LLMProvider
	models       *llm.Registry
	coordinator  *tools.Coordinator
	turns        *memory.TurnRegistry
	events       events.Publisher
	logger       logger.ILogger
	maxSteps     int
	systemPrompt string
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.LLMProvider,
	models *llm.Registry,
	coordinator *tools.Coordinator,
	turns *memory.TurnRegistry,
	publisher events.Publisher,
	log logger.ILogger,
	maxSteps int,
) IChatService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &chatService{
		uowFactory:   uowFactory,
		provider:     provider,
		models:       models,
		coordinator:  coordinator,
		turns:        turns,
		events:       publisher,
		logger:       log,
		maxSteps:     maxSteps,
		systemPrompt: constant.SystemPrompt(constant.Soltar),
	}
}

func (c *chatService) StartTurn(ctx context.Context, userId uuid.UUID, req *dto.StartTurnRequest) (*Turn, error) {
	ctx, span := otel.Tracer("ai-chat-be/chat").Start(ctx, "chat.start_turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.id", req.Id), attribute.String("chat.model", req.ModelId))

	model, ok := c.models.Find(req.ModelId)
	if !ok {
		return nil, apierr.NotFound("model %q not found", req.ModelId)
	}

	userMessage := mostRecentUserMessage(req.Messages)
	if userMessage == nil {
		return nil, apierr.Validation("no user message found")
	}

	chatId, err := uuid.Parse(req.Id)
	if err != nil {
		return nil, apierr.Validation("invalid chat id %q", req.Id)
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apierr.Persistence(err)
	}

	if chat == nil {
		chat = &entity.Chat{
			Id:         chatId,
			UserId:     userId,
			Title:      c.generateTitle(ctx, model, userMessage.Content),
			Visibility: entity.VisibilityPrivate,
			CreatedAt:  time.Now().UTC(),
		}
		if err := uow.ChatRepository().Create(ctx, chat); err != nil {
			return nil, apierr.Persistence(err)
		}
		c.publish(ctx, events.ChatCreated, userId, map[string]interface{}{
			"chat_id": chat.Id.String(),
			"title":   chat.Title,
		})
	} else if chat.UserId != userId {
		return nil, apierr.Unauthorized("chat %s belongs to another user", chatId)
	}

	content, err := json.Marshal(userMessage.Content)
	if err != nil {
		return nil, apierr.Validation("invalid message content: %v", err)
	}
	message := &entity.Message{
		Id:        uuid.New(),
		ChatId:    chat.Id,
		Role:      constant.ChatMessageRoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := uow.MessageRepository().Create(ctx, message); err != nil {
		return nil, apierr.Persistence(err)
	}

	return &Turn{
		ChatId:        chat.Id,
		UserId:        userId,
		UserMessageId: message.Id,
		Model:         model,
		History:       toModelMessages(req.Messages),
	}, nil
}

func (c *chatService) HandleTurn(ctx context.Context, userId uuid.UUID, req *dto.StartTurnRequest, sink stream.Sink) error {
	turn, err := c.StartTurn(ctx, userId, req)
	if err != nil {
		return err
	}
	return c.StreamTurn(ctx, turn, sink)
}

func (c *chatService) StreamTurn(ctx context.Context, turn *Turn, sink stream.Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx, span := otel.Tracer("ai-chat-be/chat").Start(ctx, "chat.stream_turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.id", turn.ChatId.String()))

	release := c.turns.Register(turn.ChatId, turn.UserId, cancel)
	defer release()

	// a write error means the client is gone; stop pulling tokens
	mux := stream.NewMultiplexer(sink, func(error) { cancel() })
	defer mux.Close()

	if err := mux.Start(turn.UserMessageId.String()); err != nil {
		return err
	}

	session := c.coordinator.Bind(turn.UserId, turn.Model.APIIdentifier, mux)
	produced, loopErr := c.runModelLoop(ctx, turn, session, mux)

	kept := sanitizeResponseMessages(produced)
	rows, assistantIds, err := buildResponseRows(turn.ChatId, kept, time.Now().UTC())
	if err != nil {
		c.logger.Error("ChatService", "Failed to encode response messages", map[string]interface{}{
			"chat_id": turn.ChatId.String(),
			"error":   err.Error(),
		})
		return err
	}
	for _, id := range assistantIds {
		if err := mux.Annotate(id.String()); err != nil {
			break
		}
	}

	// the client already saw the stream; persist even if it hung up
	saveCtx := context.WithoutCancel(ctx)
	if len(rows) > 0 {
		uow := c.uowFactory.NewUnitOfWork(saveCtx)
		if err := uow.MessageRepository().CreateBatch(saveCtx, rows); err != nil {
			c.logger.Error("ChatService", "Failed to save response messages", map[string]interface{}{
				"chat_id": turn.ChatId.String(),
				"count":   len(rows),
				"error":   err.Error(),
			})
		}
	}

	c.publish(saveCtx, events.TurnCompleted, turn.UserId, map[string]interface{}{
		"chat_id":         turn.ChatId.String(),
		"user_message_id": turn.UserMessageId.String(),
		"saved_messages":  len(rows),
		"dropped_steps":   len(produced) - len(kept),
	})

	if loopErr != nil {
		return loopErr
	}
	return mux.Err()
}

// runModelLoop streams up to maxSteps model calls, running the tool calls of each step in
// order before the next one. Only steps whose stream completed are returned.
func (c *chatService) runModelLoop(ctx context.Context, turn *Turn, session *tools.Session, mux *stream.Multiplexer) ([]responseMessage, error) {
	messages := append([]llm.Message(nil), turn.History...)
	var produced []responseMessage

	for step := 0; step < c.maxSteps; step++ {
		msg, finish, err := c.streamStep(ctx, llm.TextRequest{
			System:   c.systemPrompt,
			Messages: messages,
			Tools:    session.Definitions(),
		}, turn.Model.APIIdentifier, mux)
		if err != nil {
			if ctx.Err() == nil && mux.Err() == nil {
				c.logger.Error("ChatService", "Model stream failed", map[string]interface{}{
					"chat_id": turn.ChatId.String(),
					"step":    step,
					"error":   err.Error(),
				})
				_ = mux.Fail(apierr.UpstreamModel(err).Error())
				return produced, apierr.UpstreamModel(err)
			}
			return produced, err
		}

		if finish != llm.FinishToolCalls || len(msg.Calls) == 0 {
			produced = append(produced, msg)
			return produced, nil
		}

		msg.Results = c.executeCalls(ctx, session, mux, msg.Calls)
		produced = append(produced, msg)
		if err := ctx.Err(); err != nil {
			return produced, err
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   msg.Text,
			ToolCalls: msg.Calls,
		})
		for _, r := range msg.Results {
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: r.CallID,
				Name:       r.Name,
				Content:    r.Content(),
			})
		}
	}

	return produced, nil
}

func (c *chatService) streamStep(ctx context.Context, req llm.TextRequest, model string, mux *stream.Multiplexer) (responseMessage, string, error) {
	ts, err := c.provider.StreamText(ctx, req, llm.WithModel(model))
	if err != nil {
		return responseMessage{}, "", err
	}
	defer ts.Close()

	var text strings.Builder
	var calls []llm.ToolCall
	finish := ""
	for {
		chunk, err := ts.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return responseMessage{}, "", err
		}
		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			if err := mux.AssistantText(chunk.Delta); err != nil {
				return responseMessage{}, "", err
			}
		}
		calls = append(calls, chunk.ToolCalls...)
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}

	return responseMessage{Text: text.String(), Calls: calls}, finish, nil
}

// executeCalls runs the calls one at a time in the order the model emitted them. A call
// interrupted by cancellation gets no result.
func (c *chatService) executeCalls(ctx context.Context, session *tools.Session, mux *stream.Multiplexer, calls []llm.ToolCall) []tools.Result {
	results := make([]tools.Result, 0, len(calls))
	for _, call := range calls {
		if ctx.Err() != nil {
			break
		}
		if payload, err := json.Marshal(call); err == nil {
			_ = mux.ToolCall(string(payload))
		}

		res := session.Execute(ctx, call)
		if ctx.Err() != nil {
			break
		}
		results = append(results, res)

		payload, _ := json.Marshal(map[string]interface{}{
			"toolCallId": res.CallID,
			"toolName":   res.Name,
			"result":     json.RawMessage(res.Content()),
		})
		_ = mux.ToolResult(string(payload))
	}
	return results
}

// buildResponseRows turns kept steps into stored messages: one assistant message per step,
// followed by one tool message holding its results. Timestamps are spaced by a microsecond
// so the stored order is the stream order.
func buildResponseRows(chatId uuid.UUID, kept []responseMessage, base time.Time) ([]*entity.Message, []uuid.UUID, error) {
	var rows []*entity.Message
	var assistantIds []uuid.UUID

	next := func(role string, parts []dto.MessagePart) error {
		content, err := json.Marshal(parts)
		if err != nil {
			return err
		}
		rows = append(rows, &entity.Message{
			Id:        uuid.New(),
			ChatId:    chatId,
			Role:      role,
			Content:   content,
			CreatedAt: base.Add(time.Duration(len(rows)) * time.Microsecond),
		})
		return nil
	}

	for _, m := range kept {
		var parts []dto.MessagePart
		if m.Text != "" {
			parts = append(parts, dto.MessagePart{Type: dto.PartText, Text: m.Text})
		}
		for _, call := range m.Calls {
			parts = append(parts, dto.MessagePart{
				Type:       dto.PartToolCall,
				ToolCallId: call.ID,
				ToolName:   call.Name,
				Args:       rawArgs(call.Arguments),
			})
		}
		if err := next(constant.ChatMessageRoleAssistant, parts); err != nil {
			return nil, nil, err
		}
		assistantIds = append(assistantIds, rows[len(rows)-1].Id)

		if len(m.Calls) == 0 {
			continue
		}
		results := make([]dto.MessagePart, 0, len(m.Calls))
		for _, call := range m.Calls {
			r, _ := m.result(call.ID)
			results = append(results, dto.MessagePart{
				Type:       dto.PartToolResult,
				ToolCallId: call.ID,
				ToolName:   call.Name,
				Result:     json.RawMessage(r.Content()),
			})
		}
		if err := next(constant.ChatMessageRoleTool, results); err != nil {
			return nil, nil, err
		}
	}
	return rows, assistantIds, nil
}

func rawArgs(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

// generateTitle asks the model for a short title. Any failure falls back to the start of
// the message itself.
func (c *chatService) generateTitle(ctx context.Context, model llm.Model, message string) string {
	title, err := c.provider.Generate(ctx, constant.TitleSystemPrompt, message,
		llm.WithModel(model.APIIdentifier),
		llm.WithTemperature(constant.TitleTemperature),
		llm.WithMaxTokens(constant.TitleMaxTokens),
	)
	if err != nil {
		c.logger.Warn("ChatService", "Title generation failed, using message prefix", map[string]interface{}{
			"error": err.Error(),
		})
		title = message
	}

	title = strings.Join(strings.Fields(strings.Trim(title, "\"' \n")), " ")
	if title == "" {
		title = strings.Join(strings.Fields(message), " ")
	}
	if title == "" {
		return "New chat"
	}
	return truncateRunes(title, constant.TitleMaxLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (c *chatService) GetHistory(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	var chat *entity.Chat
	var messages []*entity.Message

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chat, err = c.uowFactory.NewUnitOfWork(gctx).ChatRepository().FindOne(gctx, specification.ByID{ID: chatId})
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = c.uowFactory.NewUnitOfWork(gctx).MessageRepository().FindAll(gctx,
			specification.ByChatID{ChatID: chatId},
			specification.OrderBy{Field: "created_at"},
		)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.Persistence(err)
	}

	if chat == nil {
		return nil, apierr.NotFound("chat %s not found", chatId)
	}
	if chat.IsPrivate() && chat.UserId != userId {
		return nil, apierr.Unauthorized("chat %s is private", chatId)
	}

	res := &dto.ChatHistoryResponse{
		Chat:     toChatResponse(chat),
		Messages: make([]dto.MessageResponse, len(messages)),
	}
	for i, m := range messages {
		res.Messages[i] = dto.MessageResponse{
			Id:        m.Id,
			ChatId:    m.ChatId,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return res, nil
}

func (c *chatService) ListChats(ctx context.Context, userId uuid.UUID) ([]dto.ChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	chats, err := uow.ChatRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}

	res := make([]dto.ChatResponse, len(chats))
	for i, chat := range chats {
		res[i] = toChatResponse(chat)
	}
	return res, nil
}

func (c *chatService) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apierr.Persistence(err)
	}
	defer uow.Rollback()

	if _, err := c.ownedChat(ctx, uow, userId, chatId); err != nil {
		return err
	}

	if _, err := uow.MessageRepository().DeleteWhere(ctx, specification.ByChatID{ChatID: chatId}); err != nil {
		return apierr.Persistence(err)
	}
	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return apierr.Persistence(err)
	}
	if err := uow.Commit(); err != nil {
		return apierr.Persistence(err)
	}

	c.publish(ctx, events.ChatDeleted, userId, map[string]interface{}{
		"chat_id": chatId.String(),
	})
	return nil
}

func (c *chatService) UpdateVisibility(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.UpdateVisibilityRequest) (*dto.ChatResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	chat, err := c.ownedChat(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	chat.Visibility = req.Visibility
	if err := uow.ChatRepository().Update(ctx, chat); err != nil {
		return nil, apierr.Persistence(err)
	}

	res := toChatResponse(chat)
	return &res, nil
}

func (c *chatService) DeleteTrailingMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, after time.Time) (*dto.DeleteMessagesResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if _, err := c.ownedChat(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	deleted, err := uow.MessageRepository().DeleteWhere(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.CreatedAtOrAfter{Time: after.UTC()},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	return &dto.DeleteMessagesResponse{Deleted: deleted}, nil
}

func (c *chatService) StopTurn(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) bool {
	stopped := c.turns.Cancel(chatId, userId)
	if stopped {
		c.logger.Info("ChatService", "Turn stopped by client", map[string]interface{}{
			"chat_id": chatId.String(),
		})
	}
	return stopped
}

func (c *chatService) ownedChat(ctx context.Context, uow unitofwork.UnitOfWork, userId, chatId uuid.UUID) (*entity.Chat, error) {
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if chat == nil {
		return nil, apierr.NotFound("chat %s not found", chatId)
	}
	if chat.UserId != userId {
		return nil, apierr.Unauthorized("chat %s belongs to another user", chatId)
	}
	return chat, nil
}

func (c *chatService) publish(ctx context.Context, eventType string, userId uuid.UUID, data map[string]interface{}) {
	if err := c.events.Publish(ctx, events.New(eventType, userId, data)); err != nil {
		c.logger.Warn("ChatService", fmt.Sprintf("Failed to publish %s event", eventType), map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func toChatResponse(chat *entity.Chat) dto.ChatResponse {
	return dto.ChatResponse{
		Id:         chat.Id,
		UserId:     chat.UserId,
		Title:      chat.Title,
		Visibility: chat.Visibility,
		CreatedAt:  chat.CreatedAt,
	}
}

func mostRecentUserMessage(messages []dto.ChatMessageDTO) *dto.ChatMessageDTO {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == constant.ChatMessageRoleUser {
			return &messages[i]
		}
	}
	return nil
}

// toModelMessages converts the client's history. Tool invocations that carry a result
// become an assistant tool-call message followed by tool messages; the rest are dropped
// because the model cannot be replayed a call without its result.
func toModelMessages(messages []dto.ChatMessageDTO) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case constant.ChatMessageRoleUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Content})

		case constant.ChatMessageRoleAssistant:
			var calls []llm.ToolCall
			var results []llm.Message
			for _, inv := range m.ToolInvocations {
				if inv.State != dto.InvocationResult || len(inv.Result) == 0 {
					continue
				}
				calls = append(calls, llm.ToolCall{ID: inv.ToolCallId, Name: inv.ToolName, Arguments: string(rawArgs(string(inv.Args)))})
				results = append(results, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: inv.ToolCallId,
					Name:       inv.ToolName,
					Content:    string(inv.Result),
				})
			}
			if m.Content == "" && len(calls) == 0 {
				continue
			}
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content, ToolCalls: calls})
			out = append(out, results...)
		}
	}
	return out
}
