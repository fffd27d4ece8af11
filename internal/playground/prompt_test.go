package playground

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt(t *testing.T) {
	td := contactTool()
	td.SystemPrompt = "Always greet the user warmly."
	td.Steps[0].Fields[0].Validation = &FieldValidation{Required: true}

	p := BuildSystemPrompt(td)

	assert.Contains(t, p, "Name: Contact Form")
	assert.Contains(t, p, "Always greet the user warmly.")
	assert.Contains(t, p, "Step 1: Personal")
	assert.Contains(t, p, "- First name (firstName): text (required)")
	assert.Contains(t, p, "- Email (email): email\n")
	assert.Contains(t, p, "Options: email, phone")
	assert.Contains(t, p, "Send tool calls BEFORE your text responses")
}

func TestBuildSystemPrompt_ToolPromptPrecedesStructure(t *testing.T) {
	td := contactTool()
	td.SystemPrompt = "CUSTOM-MARKER"
	p := BuildSystemPrompt(td)

	custom := strings.Index(p, "CUSTOM-MARKER")
	structure := strings.Index(p, "form structure")
	assert.Greater(t, structure, custom)
	assert.GreaterOrEqual(t, custom, 0)
}
