package chat

import (
	"time"

	"github.com/harborbank/advisor/internal/llm"
)

type TurnKind string

const (
	TurnUser      TurnKind = "USER"
	TurnAssistant TurnKind = "ASSISTANT"
	TurnTool      TurnKind = "TOOL"
)

// Turn is one committed entry in a conversation's log. Turns are immutable
// once committed; the log only grows.
type Turn struct {
	Kind        TurnKind    `json:"kind"`
	Message     llm.Message `json:"message"`
	CommittedAt time.Time   `json:"committedAt"`
}

func userTurn(text string) Turn {
	return Turn{Kind: TurnUser, Message: llm.User(text), CommittedAt: time.Now().UTC()}
}

func assistantTextTurn(text string) Turn {
	return Turn{Kind: TurnAssistant, Message: llm.Assistant(text), CommittedAt: time.Now().UTC()}
}

func assistantToolCallTurn(call llm.ToolCallData) Turn {
	c := call
	return Turn{
		Kind: TurnAssistant,
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: []llm.ContentPart{{Kind: llm.ContentToolCall, ToolCall: &c}},
		},
		CommittedAt: time.Now().UTC(),
	}
}

func toolResultTurn(call llm.ToolCallData, result string) Turn {
	return Turn{
		Kind:        TurnTool,
		Message:     llm.ToolResultNamed(call.ID, call.Name, result, false),
		CommittedAt: time.Now().UTC(),
	}
}
