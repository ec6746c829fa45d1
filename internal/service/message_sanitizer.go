package service

import (
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/tools"
)

// responseMessage is one assistant step of the model loop together with the results of
// the tool calls it made. Results may be missing when the turn stopped mid-step.
type responseMessage struct {
	Text    string
	Calls   []llm.ToolCall
	Results []tools.Result
}

func (m responseMessage) result(callID string) (tools.Result, bool) {
	for _, r := range m.Results {
		if r.CallID == callID {
			return r, true
		}
	}
	return tools.Result{}, false
}

// resolved reports whether every call of the message has a completed result.
func (m responseMessage) resolved() bool {
	for _, c := range m.Calls {
		r, ok := m.result(c.ID)
		if !ok || !r.Completed() {
			return false
		}
	}
	return true
}

// sanitizeResponseMessages drops steps that reference a tool call without a completed
// result, and steps that carry nothing at all. What is left can be replayed to the model
// on the next turn.
func sanitizeResponseMessages(messages []responseMessage) []responseMessage {
	out := make([]responseMessage, 0, len(messages))
	for _, m := range messages {
		if !m.resolved() {
			continue
		}
		if m.Text == "" && len(m.Calls) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}
