package chat

import (
	"fmt"
	"sync"

	"github.com/harborbank/advisor/internal/llm"
)

// MessageLog is the append-only record of committed turns for one
// conversation. A tool-call turn may only enter the log together with its
// matching tool-result turn, so readers never observe a dangling call.
type MessageLog struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append commits a single user or assistant-text turn. Turns carrying a
// tool call are rejected; those must go through AppendPair.
func (l *MessageLog) Append(t Turn) error {
	for _, p := range t.Message.Content {
		if p.Kind == llm.ContentToolCall {
			return fmt.Errorf("messagelog: tool-call turn must be committed with its result")
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
	return nil
}

// AppendPair commits an assistant tool-call turn and its tool-result turn
// as one batch. The result must reference the call's id.
func (l *MessageLog) AppendPair(call, result Turn) error {
	cd := firstToolCall(call.Message)
	if cd == nil {
		return fmt.Errorf("messagelog: pair is missing a tool call")
	}
	rd := firstToolResult(result.Message)
	if rd == nil {
		return fmt.Errorf("messagelog: pair is missing a tool result")
	}
	if rd.ToolCallID != cd.ID {
		return fmt.Errorf("messagelog: result references call %q, expected %q", rd.ToolCallID, cd.ID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, call, result)
	return nil
}

// Turns returns a snapshot of the committed history in commit order.
func (l *MessageLog) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Messages returns the committed history in the shape the model consumes.
func (l *MessageLog) Messages() []llm.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]llm.Message, 0, len(l.turns))
	for _, t := range l.turns {
		out = append(out, t.Message)
	}
	return out
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

func firstToolCall(m llm.Message) *llm.ToolCallData {
	for _, p := range m.Content {
		if p.Kind == llm.ContentToolCall && p.ToolCall != nil {
			return p.ToolCall
		}
	}
	return nil
}

func firstToolResult(m llm.Message) *llm.ToolResultData {
	for _, p := range m.Content {
		if p.Kind == llm.ContentToolResult && p.ToolResult != nil {
			return p.ToolResult
		}
	}
	return nil
}
