// Package playground implements the user-authored-tool variant: arbitrary
// form-shaped tool definitions, their persistence, and the fillForm session
// state the model populates incrementally.
package playground

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldURL      FieldType = "url"
)

var fieldTypes = map[FieldType]bool{
	FieldText: true, FieldNumber: true, FieldDate: true,
	FieldSelect: true, FieldRadio: true, FieldCheckbox: true,
	FieldTextarea: true, FieldEmail: true, FieldTel: true, FieldURL: true,
}

// optioned reports whether the field type requires an options list.
func (t FieldType) optioned() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

type FieldValidation struct {
	Required      bool     `json:"required,omitempty"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
	MinLength     *int     `json:"minLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	CustomMessage string   `json:"customMessage,omitempty"`
}

type FormField struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        FieldType        `json:"type"`
	Label       string           `json:"label"`
	Options     []string         `json:"options,omitempty"`
	Validation  *FieldValidation `json:"validation,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpText    string           `json:"helpText,omitempty"`
}

type FormStep struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields"`
}

type FormAction struct {
	Type    string `json:"type"`
	Handler string `json:"handler"`
	Label   string `json:"label"`
}

type ToolSettings struct {
	SubmitLabel        string `json:"submitLabel,omitempty"`
	ShowStepIndicator  *bool  `json:"showStepIndicator,omitempty"`
	AllowPartialSubmit *bool  `json:"allowPartialSubmit,omitempty"`
}

// ToolDefinition is a user-authored multi-step form tool. Field names are the
// join key for merging streamed fillForm arguments, so they must be unique
// across all steps.
type ToolDefinition struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Steps       []FormStep    `json:"steps"`
	SystemPrompt string       `json:"systemPrompt"`
	Actions     []FormAction  `json:"actions,omitempty"`
	Settings    *ToolSettings `json:"settings,omitempty"`
}

func (td ToolDefinition) Validate() error {
	if strings.TrimSpace(td.Name) == "" {
		return fmt.Errorf("tool name is required")
	}
	if len(td.Steps) == 0 {
		return fmt.Errorf("tool %q has no steps", td.Name)
	}
	seen := map[string]string{}
	for _, step := range td.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return fmt.Errorf("tool %q has a step without a title", td.Name)
		}
		for _, f := range step.Fields {
			name := strings.TrimSpace(f.Name)
			if name == "" {
				return fmt.Errorf("step %q has a field without a name", step.Title)
			}
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("field name %q appears in steps %q and %q", name, prev, step.Title)
			}
			seen[name] = step.Title
			if !fieldTypes[f.Type] {
				return fmt.Errorf("field %q has unknown type %q", name, f.Type)
			}
			if f.Type.optioned() && len(f.Options) == 0 {
				return fmt.Errorf("field %q of type %s requires options", name, f.Type)
			}
			if !f.Type.optioned() && len(f.Options) > 0 {
				return fmt.Errorf("field %q of type %s does not take options", name, f.Type)
			}
		}
	}
	return nil
}

// Fields flattens the step structure in declaration order.
func (td ToolDefinition) Fields() []FormField {
	var out []FormField
	for _, step := range td.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// FieldByName performs the name-keyed lookup used during reconciliation.
func (td ToolDefinition) FieldByName(name string) (FormField, bool) {
	for _, f := range td.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}
