package playground

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborbank/advisor/internal/llm"
)

func contactTool() ToolDefinition {
	return ToolDefinition{
		Name:        "Contact Form",
		Description: "Collects contact details",
		Steps: []FormStep{
			{
				ID:    "s1",
				Title: "Personal",
				Fields: []FormField{
					{ID: "f1", Name: "firstName", Type: FieldText, Label: "First name"},
					{ID: "f2", Name: "email", Type: FieldEmail, Label: "Email"},
				},
			},
			{
				ID:    "s2",
				Title: "Preferences",
				Fields: []FormField{
					{ID: "f3", Name: "channel", Type: FieldSelect, Label: "Channel", Options: []string{"email", "phone"}},
				},
			},
		},
	}
}

func fillCall(args string) llm.ContentPart {
	return llm.ContentPart{
		Kind: llm.ContentToolCall,
		ToolCall: &llm.ToolCallData{
			ID:        "call_1",
			Name:      FillFormToolName,
			Arguments: json.RawMessage(args),
		},
	}
}

func TestSessionState_ApplyIsLeftFoldOfOverwrites(t *testing.T) {
	s := NewSessionState(contactTool())

	calls := []map[string]string{
		{"firstName": "Ada"},
		{"email": "ada@example.com"},
		{"firstName": "Ada L.", "channel": "email"},
	}
	var got map[string]string
	for _, c := range calls {
		got = s.Apply(c)
	}

	assert.Equal(t, map[string]string{
		"firstName": "Ada L.",
		"email":     "ada@example.com",
		"channel":   "email",
	}, got)

	// Keys are never removed, only overwritten.
	got = s.Apply(map[string]string{"email": "lovelace@example.com"})
	assert.Len(t, got, 3)
	assert.Equal(t, "lovelace@example.com", got["email"])
}

func TestSessionState_ResetClearsForm(t *testing.T) {
	s := NewSessionState(contactTool())
	s.Apply(map[string]string{"firstName": "Ada"})

	other := contactTool()
	other.Name = "Other Form"
	s.Reset(other)

	assert.Empty(t, s.FormState())
	assert.Equal(t, "Other Form", s.Tool().Name)
}

func TestSessionState_ApplyPartsIgnoresPartOrder(t *testing.T) {
	textFirst := []llm.ContentPart{
		{Kind: llm.ContentText, Text: "Filling that in for you."},
		fillCall(`{"fields":{"firstName":"Ada"}}`),
	}
	callFirst := []llm.ContentPart{
		fillCall(`{"fields":{"firstName":"Ada"}}`),
		{Kind: llm.ContentText, Text: "Filling that in for you."},
	}

	for name, parts := range map[string][]llm.ContentPart{"text first": textFirst, "call first": callFirst} {
		t.Run(name, func(t *testing.T) {
			s := NewSessionState(contactTool())
			got, err := s.ApplyParts(parts)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"firstName": "Ada"}, got)
		})
	}
}

func TestSessionState_ApplyPartsSkipsOtherTools(t *testing.T) {
	s := NewSessionState(contactTool())
	parts := []llm.ContentPart{
		{Kind: llm.ContentToolCall, ToolCall: &llm.ToolCallData{
			ID: "call_x", Name: "somethingElse", Arguments: json.RawMessage(`{"fields":{"firstName":"Eve"}}`),
		}},
	}
	got, err := s.ApplyParts(parts)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseFillForm(t *testing.T) {
	t.Run("strings pass through", func(t *testing.T) {
		got, err := ParseFillForm(json.RawMessage(`{"fields":{"firstName":"Ada"}}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"firstName": "Ada"}, got)
	})

	t.Run("scalars coerce to strings", func(t *testing.T) {
		got, err := ParseFillForm(json.RawMessage(`{"fields":{"amount":2500,"subscribed":true}}`))
		require.NoError(t, err)
		assert.Equal(t, "2500", got["amount"])
		assert.Equal(t, "true", got["subscribed"])
	})

	t.Run("missing fields object rejected", func(t *testing.T) {
		_, err := ParseFillForm(json.RawMessage(`{}`))
		assert.Error(t, err)
	})

	t.Run("empty arguments rejected", func(t *testing.T) {
		_, err := ParseFillForm(nil)
		assert.Error(t, err)
	})
}
