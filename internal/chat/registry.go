package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/harborbank/advisor/internal/llm"
)

// ToolOutput is what a tool hands back: a textual result for the model's
// context plus an optional artifact for the client to render.
type ToolOutput struct {
	Result   string
	Artifact *Artifact
}

type RegisteredTool struct {
	Definition llm.ToolDefinition
	Schema     *jsonschema.Schema
	Generate   func(ctx context.Context, args map[string]any) (ToolOutput, error)
}

// ToolRegistry holds the tools exposed to the model. Unknown tool names
// and schema-invalid arguments are hard failures; nothing speculative runs.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]RegisteredTool{}}
}

func (r *ToolRegistry) Register(t RegisteredTool) error {
	if err := llm.ValidateToolName(t.Definition.Name); err != nil {
		return err
	}
	if t.Generate == nil {
		return fmt.Errorf("tool %s missing generator", t.Definition.Name)
	}
	if t.Schema == nil {
		s, err := compileSchema(t.Definition.Parameters)
		if err != nil {
			return fmt.Errorf("tool %s schema: %w", t.Definition.Name, err)
		}
		t.Schema = s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Definition.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Definition.Name)
	}
	r.tools[t.Definition.Name] = t
	return nil
}

// Definitions returns tool definitions sorted by name, for stable request
// payloads.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *ToolRegistry) Lookup(name string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Validate resolves a tool call against the registry: the tool must exist
// and the arguments must satisfy its schema. Returns the decoded args.
func (r *ToolRegistry) Validate(call llm.ToolCallData) (RegisteredTool, map[string]any, error) {
	t, ok := r.Lookup(call.Name)
	if !ok {
		return RegisteredTool{}, nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return RegisteredTool{}, nil, fmt.Errorf("tool %s: invalid arguments JSON: %w", call.Name, err)
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := t.Schema.Validate(args); err != nil {
		return RegisteredTool{}, nil, fmt.Errorf("tool %s: arguments rejected: %w", call.Name, err)
	}
	return t, args, nil
}

func compileSchema(params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", strings.NewReader(string(b))); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}
