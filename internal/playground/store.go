package playground

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Store is the process-wide tool-definition collection. Append-only: no
// delete, no update, no persistence across restarts.
type Store struct {
	mu    sync.RWMutex
	tools []ToolDefinition
}

func NewStore() *Store {
	return &Store{}
}

// Add validates and appends a definition. Missing ids are assigned.
func (s *Store) Add(td ToolDefinition) (ToolDefinition, error) {
	if err := td.Validate(); err != nil {
		return ToolDefinition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if td.ID == "" {
		td.ID = ulid.Make().String()
	}
	s.tools = append(s.tools, td)
	return td, nil
}

// List returns the definitions in insertion order.
func (s *Store) List() []ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ToolDefinition{}, s.tools...)
}
