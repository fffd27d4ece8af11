package playground

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harborbank/advisor/internal/llm"
)

// FillFormToolName is the single dynamic tool exposed to the model during a
// test session.
const FillFormToolName = "fillForm"

// FillFormDefinition returns the runtime-checked schema for fillForm calls:
// one "fields" object mapping field names to string values.
func FillFormDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        FillFormToolName,
		Description: "Fill one or more form fields with values extracted from the user's message",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"fields": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
			"required":             []any{"fields"},
			"additionalProperties": false,
		},
	}
}

type fillFormArgs struct {
	Fields map[string]string `json:"fields"`
}

// SessionState tracks the accumulated form values for one tool under test.
// FormState' = FormState merged with the call's fields, key-wise overwrite,
// keys are never removed. Switching tools resets the state.
type SessionState struct {
	mu   sync.Mutex
	tool ToolDefinition
	form map[string]string
}

func NewSessionState(tool ToolDefinition) *SessionState {
	return &SessionState{tool: tool, form: map[string]string{}}
}

func (s *SessionState) Tool() ToolDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// Reset swaps the active tool and clears all accumulated values.
func (s *SessionState) Reset(tool ToolDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = tool
	s.form = map[string]string{}
}

// Apply merges a fillForm field map into the state and returns the merged
// snapshot. Last write wins per key.
func (s *SessionState) Apply(fields map[string]string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.form[k] = v
	}
	return copyForm(s.form)
}

// ApplyParts scans a committed turn's parts for fillForm calls and merges
// each one in order. The model is instructed to put the call before any
// prose, but that is not mechanically enforced, so part order is ignored
// here: text and tool-call parts may appear in either sequence.
func (s *SessionState) ApplyParts(parts []llm.ContentPart) (map[string]string, error) {
	var lastErr error
	for _, p := range parts {
		if p.Kind != llm.ContentToolCall || p.ToolCall == nil {
			continue
		}
		if p.ToolCall.Name != FillFormToolName {
			continue
		}
		fields, err := ParseFillForm(p.ToolCall.Arguments)
		if err != nil {
			lastErr = err
			continue
		}
		s.Apply(fields)
	}
	return s.FormState(), lastErr
}

// FormState returns a copy of the current field values.
func (s *SessionState) FormState() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyForm(s.form)
}

// ParseFillForm decodes fillForm arguments, coercing scalar values to
// strings the way the form layer consumes them.
func ParseFillForm(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("fillForm call has no arguments")
	}
	var loose struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, fmt.Errorf("invalid fillForm arguments: %w", err)
	}
	if loose.Fields == nil {
		return nil, fmt.Errorf("fillForm arguments missing fields object")
	}
	out := make(map[string]string, len(loose.Fields))
	for k, v := range loose.Fields {
		switch x := v.(type) {
		case string:
			out[k] = x
		case float64, bool, json.Number:
			out[k] = fmt.Sprint(x)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("field %q has unencodable value", k)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

func copyForm(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
