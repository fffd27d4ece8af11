package playground

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt renders the test-session instruction for a user-authored
// tool: the tool's own prompt plus the form structure and the fillForm
// calling convention.
func BuildSystemPrompt(td ToolDefinition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI assistant helping users with the following tool:\n")
	fmt.Fprintf(&b, "Name: %s\n", td.Name)
	fmt.Fprintf(&b, "Description: %s\n\n", td.Description)

	if strings.TrimSpace(td.SystemPrompt) != "" {
		b.WriteString(strings.TrimSpace(td.SystemPrompt))
		b.WriteString("\n\n")
	}

	b.WriteString("The tool has the following form structure:\n")
	for i, step := range td.Steps {
		fmt.Fprintf(&b, "\nStep %d: %s\nFields:\n", i+1, step.Title)
		for _, f := range step.Fields {
			req := ""
			if f.Validation != nil && f.Validation.Required {
				req = " (required)"
			}
			fmt.Fprintf(&b, "- %s (%s): %s%s\n", f.Label, f.Name, f.Type, req)
			if len(f.Options) > 0 {
				fmt.Fprintf(&b, "  Options: %s\n", strings.Join(f.Options, ", "))
			}
		}
	}

	b.WriteString(`
When users provide information that can be used to fill the form:
1. Parse their input to extract relevant information
2. Call the fillForm tool FIRST, passing a "fields" object whose keys are the
   exact field names from the form structure
3. Then send a friendly message confirming what was filled and asking for the
   next required field

Important:
- Use the exact field names from the form structure
- Send tool calls BEFORE your text responses
- Keep track of which fields are still empty
- Ask for required fields first
- Be concise in your responses
`)
	return b.String()
}
