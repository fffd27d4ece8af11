// Package transcript archives finished conversations. Snapshots are msgpack
// encoded and content-addressed with a blake3 digest.
package transcript

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

type Snapshot struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Digest         string    `json:"digest"`
	EncodedLen     int       `json:"encodedLen"`
	TakenAt        time.Time `json:"takenAt"`

	encoded []byte
}

// Store keeps snapshots in memory, optionally mirroring each one to a
// directory as <id>.msgpack.
type Store struct {
	dir string

	mu    sync.RWMutex
	byID  map[string]Snapshot
	order []string
}

func NewStore(dir string) *Store {
	return &Store{
		dir:  strings.TrimSpace(dir),
		byID: map[string]Snapshot{},
	}
}

// Archive encodes payload and records it under a fresh snapshot id. The
// payload must be msgpack-encodable; callers pass their own serializable
// record types.
func (s *Store) Archive(conversationID string, payload any) (Snapshot, error) {
	if strings.TrimSpace(conversationID) == "" {
		return Snapshot{}, fmt.Errorf("conversation id is required")
	}
	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode transcript: %w", err)
	}

	h := blake3.New()
	_, _ = h.Write(encoded)
	digest := hex.EncodeToString(h.Sum(nil))

	snap := Snapshot{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		Digest:         digest,
		EncodedLen:     len(encoded),
		TakenAt:        time.Now().UTC(),
		encoded:        encoded,
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return Snapshot{}, fmt.Errorf("transcript dir: %w", err)
		}
		path := filepath.Join(s.dir, snap.ID+".msgpack")
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			return Snapshot{}, fmt.Errorf("write transcript: %w", err)
		}
	}

	s.mu.Lock()
	s.byID[snap.ID] = snap
	s.order = append(s.order, snap.ID)
	s.mu.Unlock()
	return snap, nil
}

func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[id]
	return snap, ok
}

// Decode unmarshals a stored snapshot into out.
func (s *Store) Decode(id string, out any) error {
	s.mu.RLock()
	snap, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown snapshot: %s", id)
	}
	return msgpack.Unmarshal(snap.encoded, out)
}

// List returns snapshots in archive order.
func (s *Store) List() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
