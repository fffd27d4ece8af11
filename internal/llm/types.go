package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool-call"
	ContentToolResult ContentKind = "tool-result"
)

// ToolCallData is the provider-neutral form of a model-issued tool invocation.
// Arguments is the raw JSON argument object exactly as the model produced it.
type ToolCallData struct {
	ID        string          `json:"toolCallId"`
	Type      string          `json:"type,omitempty"`
	Name      string          `json:"toolName"`
	Arguments json.RawMessage `json:"args,omitempty"`
}

// ToolResultData pairs a result with the call that produced it via ToolCallID.
type ToolResultData struct {
	ToolCallID string `json:"toolCallId"`
	Name       string `json:"toolName"`
	Content    any    `json:"result"`
	IsError    bool   `json:"isError,omitempty"`
}

type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallData   `json:"toolCall,omitempty"`
	ToolResult *ToolResultData `json:"toolResult,omitempty"`
}

type Message struct {
	Role       Role          `json:"role"`
	Content    []ContentPart `json:"content"`
	Name       string        `json:"name,omitempty"`
	ToolCallID string        `json:"toolCallId,omitempty"`
}

func System(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{{Kind: ContentText, Text: text}}}
}

func User(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{{Kind: ContentText, Text: text}}}
}

func Assistant(text string) Message {
	m := Message{Role: RoleAssistant}
	if text != "" {
		m.Content = []ContentPart{{Kind: ContentText, Text: text}}
	}
	return m
}

// ToolResultNamed builds a tool-role message carrying one tool-result part.
func ToolResultNamed(callID, name string, content any, isError bool) Message {
	return Message{
		Role:       RoleTool,
		ToolCallID: callID,
		Content: []ContentPart{{
			Kind: ContentToolResult,
			ToolResult: &ToolResultData{
				ToolCallID: callID,
				Name:       name,
				Content:    content,
				IsError:    isError,
			},
		}},
	}
}

// Text concatenates all text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Content {
		if p.Kind == ContentText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool-call parts of the message in order.
func (m Message) ToolCalls() []ToolCallData {
	var out []ToolCallData
	for _, p := range m.Content {
		if p.Kind == ContentToolCall && p.ToolCall != nil {
			out = append(out, *p.ToolCall)
		}
	}
	return out
}

// ToolDefinition is the schema-bearing tool description sent to the model.
// Parameters is a JSON Schema object expressed as a plain map.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type ToolChoice struct {
	Mode string // auto | none | required | named
	Name string
}

type Request struct {
	Provider string
	Model    string
	Messages []Message

	Tools      []ToolDefinition
	ToolChoice *ToolChoice

	Temperature *float64
	MaxTokens   *int
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return &ConfigurationError{Message: "request model is required"}
	}
	if len(r.Messages) == 0 {
		return &ConfigurationError{Message: "request has no messages"}
	}
	return nil
}

type FinishReason struct {
	Reason string
	Raw    string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Response struct {
	ID       string
	Provider string
	Model    string
	Message  Message
	Finish   FinishReason
	Usage    Usage
	Raw      map[string]any
}

func (r Response) Text() string { return r.Message.Text() }

func (r Response) ToolCalls() []ToolCallData { return r.Message.ToolCalls() }

var toolNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,63}$`)

// ValidateToolName enforces the cross-provider naming rules for tools.
func ValidateToolName(name string) error {
	if !toolNameRe.MatchString(name) {
		return fmt.Errorf("invalid tool name %q: must match %s", name, toolNameRe.String())
	}
	return nil
}
