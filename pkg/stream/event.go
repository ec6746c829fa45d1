package stream

type EventType string

// Artifact-scoped and turn-scoped data events.
const (
	UserMessageID EventType = "user-message-id"
	ID            EventType = "id"
	Title         EventType = "title"
	Kind          EventType = "kind"
	Clear         EventType = "clear"
	TextDelta     EventType = "text-delta"
	CodeDelta     EventType = "code-delta"
	ImageDelta    EventType = "image-delta"
	Finish        EventType = "finish"
)

// Frames that carry the model's own output. They sit outside the per-artifact order.
const (
	AssistantDelta EventType = "assistant-delta"
	ToolCall       EventType = "tool-call"
	ToolResult     EventType = "tool-result"
	Error          EventType = "error"
)

// Event is one line of the outbound stream.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// Annotation attaches the server-side id to an assistant message after the stream completes.
type Annotation struct {
	MessageIDFromServer string `json:"messageIdFromServer"`
}

// DeltaTypeFor returns the delta event an artifact of the given kind streams.
func DeltaTypeFor(kind string) (EventType, bool) {
	switch kind {
	case "text":
		return TextDelta, true
	case "code":
		return CodeDelta, true
	case "image":
		return ImageDelta, true
	}
	return "", false
}

func (t EventType) isDelta() bool {
	return t == TextDelta || t == CodeDelta || t == ImageDelta
}
