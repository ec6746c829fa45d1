package stream

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotStarted     = errors.New("stream: user-message-id has not been written")
	ErrAlreadyStarted = errors.New("stream: turn already started")
	ErrClosed         = errors.New("stream: turn already ended")
	ErrArtifactActive = errors.New("stream: another artifact is still open")
	ErrArtifactReused = errors.New("stream: artifact id already used in this turn")
	ErrOutOfOrder     = errors.New("stream: artifact event out of order")
)

type phase int

const (
	phaseCreated phase = iota
	phaseTitled
	phaseKindSet
	phaseCleared
	phaseStreaming
	phaseFinished
	phaseAborted
)

type artifactState struct {
	phase     phase
	deltaType EventType
}

// Multiplexer serializes every outbound frame of one turn. The first frame is always
// user-message-id, artifacts follow id, title, kind, clear, delta*, finish one at a
// time, and nothing is written after Close.
type Multiplexer struct {
	mu        sync.Mutex
	sink      Sink
	started   bool
	closed    bool
	err       error
	onBroken  func(error)
	artifacts map[string]*artifactState
	active    string
}

// NewMultiplexer wraps sink. onBroken, when set, runs once on the first sink error so the
// caller can stop consuming the model stream.
func NewMultiplexer(sink Sink, onBroken func(error)) *Multiplexer {
	return &Multiplexer{
		sink:      sink,
		onBroken:  onBroken,
		artifacts: make(map[string]*artifactState),
	}
}

// Start writes the user-message-id frame.
func (m *Multiplexer) Start(userMessageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	return m.write(Event{Type: UserMessageID, Content: userMessageID})
}

// AssistantText forwards a text delta produced by the model itself.
func (m *Multiplexer) AssistantText(delta string) error {
	return m.emit(Event{Type: AssistantDelta, Content: delta})
}

func (m *Multiplexer) ToolCall(payload string) error {
	return m.emit(Event{Type: ToolCall, Content: payload})
}

func (m *Multiplexer) ToolResult(payload string) error {
	return m.emit(Event{Type: ToolResult, Content: payload})
}

// Fail reports a mid-stream abort to the client.
func (m *Multiplexer) Fail(message string) error {
	return m.emit(Event{Type: Error, Content: message})
}

// Annotate writes the messageIdFromServer annotation for an assistant message.
func (m *Multiplexer) Annotate(messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	return m.write(Annotation{MessageIDFromServer: messageID})
}

// Close ends the turn. An artifact left open is treated as interrupted.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		m.artifacts[m.active].phase = phaseAborted
		m.active = ""
	}
	m.closed = true
}

// Err returns the first sink error, if any.
func (m *Multiplexer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Used reports whether id was already opened in this turn.
func (m *Multiplexer) Used(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.artifacts[id]
	return ok
}

// OpenArtifact writes the id frame and returns a writer for the rest of the sequence.
func (m *Multiplexer) OpenArtifact(id string) (*ArtifactWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.active != "" {
		return nil, ErrArtifactActive
	}
	if _, ok := m.artifacts[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrArtifactReused, id)
	}

	m.artifacts[id] = &artifactState{phase: phaseCreated}
	m.active = id
	if err := m.write(Event{Type: ID, Content: id}); err != nil {
		return nil, err
	}
	return &ArtifactWriter{mux: m, id: id}, nil
}

func (m *Multiplexer) emit(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	return m.write(ev)
}

func (m *Multiplexer) ready() error {
	if m.closed {
		return ErrClosed
	}
	if !m.started {
		return ErrNotStarted
	}
	return m.err
}

func (m *Multiplexer) write(frame any) error {
	if m.err != nil {
		return m.err
	}
	if err := m.sink.WriteFrame(frame); err != nil {
		m.err = err
		if m.onBroken != nil {
			m.onBroken(err)
		}
		return err
	}
	return nil
}

// advance validates and writes one artifact-scoped event.
func (m *Multiplexer) advance(id string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	state, ok := m.artifacts[id]
	if !ok || m.active != id {
		return fmt.Errorf("%w: artifact %s is not open", ErrOutOfOrder, id)
	}

	next, err := transition(state, ev)
	if err != nil {
		return fmt.Errorf("%w: %s after phase %d for %s", err, ev.Type, state.phase, id)
	}
	if err := m.write(ev); err != nil {
		return err
	}

	state.phase = next
	if next == phaseFinished {
		m.active = ""
	}
	return nil
}

func transition(state *artifactState, ev Event) (phase, error) {
	switch {
	case ev.Type == Title && state.phase == phaseCreated:
		return phaseTitled, nil
	case ev.Type == Kind && state.phase == phaseTitled:
		dt, ok := DeltaTypeFor(ev.Content)
		if !ok {
			return 0, fmt.Errorf("%w: unknown kind %q", ErrOutOfOrder, ev.Content)
		}
		state.deltaType = dt
		return phaseKindSet, nil
	case ev.Type == Clear && state.phase == phaseKindSet:
		return phaseCleared, nil
	case ev.Type.isDelta() && (state.phase == phaseCleared || state.phase == phaseStreaming):
		if ev.Type != state.deltaType {
			return 0, fmt.Errorf("%w: %s does not match artifact kind", ErrOutOfOrder, ev.Type)
		}
		return phaseStreaming, nil
	case ev.Type == Finish && (state.phase == phaseCleared || state.phase == phaseStreaming):
		return phaseFinished, nil
	}
	return 0, ErrOutOfOrder
}

func (m *Multiplexer) abort(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.artifacts[id]; ok && m.active == id {
		state.phase = phaseAborted
		m.active = ""
	}
}

// ArtifactWriter emits the events of one artifact. It is only valid until Finish or Abort.
type ArtifactWriter struct {
	mux *Multiplexer
	id  string
}

func (a *ArtifactWriter) ID() string { return a.id }

func (a *ArtifactWriter) Title(title string) error {
	return a.mux.advance(a.id, Event{Type: Title, Content: title})
}

func (a *ArtifactWriter) Kind(kind string) error {
	return a.mux.advance(a.id, Event{Type: Kind, Content: kind})
}

func (a *ArtifactWriter) Clear() error {
	return a.mux.advance(a.id, Event{Type: Clear})
}

func (a *ArtifactWriter) Delta(t EventType, content string) error {
	return a.mux.advance(a.id, Event{Type: t, Content: content})
}

func (a *ArtifactWriter) Finish() error {
	return a.mux.advance(a.id, Event{Type: Finish})
}

// Abort closes the artifact without a finish frame. The client treats it as interrupted.
func (a *ArtifactWriter) Abort() {
	a.mux.abort(a.id)
}
