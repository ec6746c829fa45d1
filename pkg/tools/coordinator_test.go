package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/testutil"
	"ai-chat-be/pkg/events"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/llmtest"
	"ai-chat-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWeather struct {
	lat, lon float64
}

func (f *fakeWeather) Current(_ context.Context, lat, lon float64) (json.RawMessage, error) {
	f.lat, f.lon = lat, lon
	return json.RawMessage(`{"current":{"temperature_2m":21.5}}`), nil
}

type harness struct {
	fake    *llmtest.FakeProvider
	factory unitofwork.RepositoryFactory
	uow     unitofwork.UnitOfWork
	rec     *stream.Recorder
	mux     *stream.Multiplexer
	events  *testutil.EventRecorder
	session *Session
	userID  uuid.UUID
	weather *fakeWeather
}

func newHarness(t *testing.T, fake *llmtest.FakeProvider) *harness {
	t.Helper()

	db := testutil.NewTestDB(t)
	factory := unitofwork.NewRepositoryFactory(db)
	h := &harness{
		fake:    fake,
		factory: factory,
		uow:     factory.NewUnitOfWork(context.Background()),
		rec:     &stream.Recorder{},
		events:  &testutil.EventRecorder{},
		userID:  uuid.New(),
		weather: &fakeWeather{},
	}
	h.mux = stream.NewMultiplexer(h.rec, nil)
	require.NoError(t, h.mux.Start(uuid.NewString()))

	c := NewCoordinator(fake, factory, h.weather, h.events, logger.NewNopLogger())
	h.session = c.Bind(h.userID, "gpt-4o-mini", h.mux)
	return h
}

func call(name string, args any) llm.ToolCall {
	b, _ := json.Marshal(args)
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: string(b)}
}

func types(evs []stream.Event) []stream.EventType {
	out := make([]stream.EventType, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func (h *harness) seedDocument(t *testing.T, owner uuid.UUID, content string, at time.Time) *entity.Document {
	t.Helper()
	doc := &entity.Document{
		Id:        uuid.New(),
		CreatedAt: at,
		UserId:    owner,
		Title:     "Essay",
		Kind:      "text",
		Content:   content,
	}
	require.NoError(t, h.uow.DocumentRepository().Create(context.Background(), doc))
	return doc
}

func TestCreateDocument_TextArtifactOrder(t *testing.T) {
	h := newHarness(t, &llmtest.FakeProvider{Texts: []llmtest.TextScript{llmtest.Stop("# Ode", "\n\nO moon")}})

	res := h.session.Execute(context.Background(), call(CreateDocument, map[string]string{"title": "Ode", "kind": "text"}))
	require.NoError(t, res.Err)
	assert.True(t, res.Completed())

	evs := h.rec.Events()
	assert.Equal(t, []stream.EventType{
		stream.UserMessageID, stream.ID, stream.Title, stream.Kind, stream.Clear,
		stream.TextDelta, stream.TextDelta, stream.Finish,
	}, types(evs))
	assert.Equal(t, "Ode", evs[2].Content)
	assert.Equal(t, "text", evs[3].Content)

	out := res.Output.(DocumentResult)
	assert.Equal(t, evs[1].Content, out.ID)
	assert.Equal(t, "# Ode\n\nO moon", out.Content)

	docs, err := h.uow.DocumentRepository().FindAll(context.Background(), specification.UserOwnedBy{UserID: h.userID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "text", docs[0].Kind)
	assert.Equal(t, "# Ode\n\nO moon", docs[0].Content)
	assert.Equal(t, []string{events.DocumentSaved}, h.events.Types())
}

func TestCreateDocument_CodeAndImage(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		fake      *llmtest.FakeProvider
		wantDelta stream.EventType
		want      string
	}{
		{
			name: "code replaces draft",
			kind: "code",
			fake: &llmtest.FakeProvider{Objects: []llmtest.ObjectScript{{Values: []string{
				`{"code":"print("}`, `{"code":"print(42)"}`,
			}}}},
			wantDelta: stream.CodeDelta,
			want:      "print(42)",
		},
		{
			name:      "image is one delta",
			kind:      "image",
			fake:      &llmtest.FakeProvider{Image: "iVBORw0KGgo="},
			wantDelta: stream.ImageDelta,
			want:      "iVBORw0KGgo=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.fake)

			res := h.session.Execute(context.Background(), call(CreateDocument, map[string]string{"title": "x", "kind": tt.kind}))
			require.NoError(t, res.Err)

			evs := h.rec.Events()
			last := evs[len(evs)-1]
			assert.Equal(t, stream.Finish, last.Type)
			assert.Equal(t, tt.wantDelta, evs[len(evs)-2].Type)
			assert.Equal(t, tt.want, res.Output.(DocumentResult).Content)
		})
	}
}

func TestCreateDocument_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "unknown kind", args: `{"title":"x","kind":"video"}`},
		{name: "missing title", args: `{"kind":"text"}`},
		{name: "not json", args: `{"title":`},
		{name: "empty", args: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &llmtest.FakeProvider{})

			res := h.session.Execute(context.Background(), llm.ToolCall{ID: "c", Name: CreateDocument, Arguments: tt.args})
			assert.Error(t, res.Err)
			assert.False(t, res.Completed())
			assert.Contains(t, res.Content(), `"error"`)
			// nothing but the opening frame
			assert.Len(t, h.rec.Events(), 1)
		})
	}
}

func TestCreateDocument_UpstreamFailureAbortsArtifact(t *testing.T) {
	h := newHarness(t, &llmtest.FakeProvider{Texts: []llmtest.TextScript{{
		Chunks: []llm.TextChunk{{Delta: "half"}},
		Err:    errors.New("connection reset"),
	}}})

	res := h.session.Execute(context.Background(), call(CreateDocument, map[string]string{"title": "Ode", "kind": "text"}))
	assert.ErrorIs(t, res.Err, apierr.ErrUpstreamModel)

	evs := h.rec.Events()
	assert.NotContains(t, types(evs), stream.Finish)

	count, err := h.uow.DocumentRepository().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	// the turn can go on with another artifact
	res = h.session.Execute(context.Background(), call(CreateDocument, map[string]string{"title": "Again", "kind": "text"}))
	assert.NoError(t, res.Err)
}

func TestUpdateDocument(t *testing.T) {
	t.Run("new version under the same id", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{Texts: []llmtest.TextScript{llmtest.Stop("shorter")}})
		doc := h.seedDocument(t, h.userID, "a very long essay", time.Now().UTC().Add(-time.Minute))

		res := h.session.Execute(context.Background(), call(UpdateDocument, map[string]string{
			"id": doc.Id.String(), "title": "make it shorter", "kind": "text",
		}))
		require.NoError(t, res.Err)
		assert.Contains(t, h.fake.TextRequests[0].System, "a very long essay")

		versions, err := h.uow.DocumentRepository().FindAll(context.Background(),
			specification.ByID{ID: doc.Id},
			specification.OrderBy{Field: "created_at"},
		)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "shorter", versions[1].Content)
		assert.True(t, versions[1].CreatedAt.After(versions[0].CreatedAt))

		evs := h.rec.Events()
		assert.Equal(t, doc.Id.String(), evs[1].Content)
	})

	t.Run("missing document", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{})

		res := h.session.Execute(context.Background(), call(UpdateDocument, map[string]string{
			"id": uuid.NewString(), "title": "x", "kind": "text",
		}))
		assert.ErrorIs(t, res.Err, apierr.ErrNotFound)
		assert.Len(t, h.rec.Events(), 1)
	})

	t.Run("foreign document", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{})
		doc := h.seedDocument(t, uuid.New(), "theirs", time.Now().UTC())

		res := h.session.Execute(context.Background(), call(UpdateDocument, map[string]string{
			"id": doc.Id.String(), "title": "x", "kind": "text",
		}))
		assert.ErrorIs(t, res.Err, apierr.ErrUnauthorized)
		assert.Empty(t, h.fake.TextRequests)

		count, err := h.uow.DocumentRepository().Count(context.Background(), specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("document created earlier in the same turn", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{Texts: []llmtest.TextScript{llmtest.Stop("first draft")}})

		created := h.session.Execute(context.Background(), call(CreateDocument, map[string]string{"title": "Ode", "kind": "text"}))
		require.NoError(t, created.Err)
		id := created.Output.(DocumentResult).ID
		before := len(h.rec.Events())

		res := h.session.Execute(context.Background(), call(UpdateDocument, map[string]string{
			"id": id, "title": "make it rhyme", "kind": "text",
		}))
		assert.ErrorIs(t, res.Err, apierr.ErrValidation)
		assert.Len(t, h.fake.TextRequests, 1)
		assert.Len(t, h.rec.Events(), before)

		count, err := h.uow.DocumentRepository().Count(context.Background(), specification.ByID{ID: uuid.MustParse(id)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestRequestSuggestions(t *testing.T) {
	t.Run("collects well formed items pinned to the current version", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{Objects: []llmtest.ObjectScript{{Values: []string{
			`{"suggestions":[{"originalText":"teh"}]}`,
			`{"suggestions":[{"originalText":"teh","suggestedText":"the","description":"typo"},{"originalText":"only"}]}`,
		}}}})
		old := time.Now().UTC().Add(-time.Hour)
		doc := h.seedDocument(t, h.userID, "teh end", old)
		require.NoError(t, h.uow.DocumentRepository().Create(context.Background(), &entity.Document{
			Id: doc.Id, CreatedAt: old.Add(2 * time.Minute), UserId: h.userID, Title: "Essay", Kind: "text", Content: "teh end",
		}))

		res := h.session.Execute(context.Background(), call(RequestSuggestions, map[string]string{"documentId": doc.Id.String()}))
		require.NoError(t, res.Err)

		out := res.Output.([]SuggestionResult)
		require.Len(t, out, 1)
		assert.Equal(t, "the", out[0].SuggestedText)

		stored, err := h.uow.SuggestionRepository().FindAll(context.Background(), specification.ByDocumentID{DocumentID: doc.Id})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.True(t, stored[0].DocumentCreatedAt.Equal(old.Add(2*time.Minute)))
		assert.Equal(t, h.userID, stored[0].UserId)
	})

	t.Run("foreign document persists nothing", func(t *testing.T) {
		h := newHarness(t, &llmtest.FakeProvider{Objects: []llmtest.ObjectScript{{Values: []string{
			`{"suggestions":[{"originalText":"a","suggestedText":"b","description":null}]}`,
		}}}})
		doc := h.seedDocument(t, uuid.New(), "theirs", time.Now().UTC())

		res := h.session.Execute(context.Background(), call(RequestSuggestions, map[string]string{"documentId": doc.Id.String()}))
		assert.ErrorIs(t, res.Err, apierr.ErrUnauthorized)
		assert.Empty(t, h.fake.ObjectRequests)

		count, err := h.uow.SuggestionRepository().Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestGetWeather(t *testing.T) {
	h := newHarness(t, &llmtest.FakeProvider{})

	res := h.session.Execute(context.Background(), call(GetWeather, map[string]float64{"latitude": 52.52, "longitude": 13.41}))
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"current":{"temperature_2m":21.5}}`, res.Content())
	assert.Equal(t, 52.52, h.weather.lat)
	assert.Len(t, h.rec.Events(), 1)
}

func TestUnknownTool(t *testing.T) {
	h := newHarness(t, &llmtest.FakeProvider{})

	res := h.session.Execute(context.Background(), llm.ToolCall{ID: "x", Name: "launchRocket", Arguments: "{}"})
	assert.Error(t, res.Err)
	assert.JSONEq(t, `{"error":"unknown tool \"launchRocket\""}`, res.Content())
}

func TestDefinitions(t *testing.T) {
	h := newHarness(t, &llmtest.FakeProvider{})

	var names []string
	for _, d := range h.session.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{GetWeather, CreateDocument, UpdateDocument, RequestSuggestions}, names)

	noWeather := NewCoordinator(h.fake, h.factory, nil, nil, logger.NewNopLogger()).Bind(h.userID, "m", h.mux)
	assert.Len(t, noWeather.Definitions(), 3)
}
