package chat

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
)

const turnQueueDepth = 64

// Conversation is one dialogue's state: its committed log plus the stream
// of the in-flight generation, if any. Turns run on a single worker
// goroutine fed by a FIFO queue, so concurrent sends commit whole turns
// in arrival order, never interleaved.
type Conversation struct {
	ID  string
	Log *MessageLog

	mu      sync.Mutex
	current *StreamValue
	closed  bool

	jobs chan func()
}

func newConversation(id string) *Conversation {
	c := &Conversation{
		ID:   id,
		Log:  NewMessageLog(),
		jobs: make(chan func(), turnQueueDepth),
	}
	go c.loop()
	return c
}

func (c *Conversation) loop() {
	for job := range c.jobs {
		job()
	}
}

// enqueue schedules work on the conversation's worker. Fails once the
// conversation is closed or the queue is full.
func (c *Conversation) enqueue(job func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("conversation %s is closed", c.ID)
	}
	select {
	case c.jobs <- job:
		return nil
	default:
		return fmt.Errorf("conversation %s has too many pending turns", c.ID)
	}
}

// drain blocks until every previously queued turn has finished.
func (c *Conversation) drain() {
	done := make(chan struct{})
	if err := c.enqueue(func() { close(done) }); err != nil {
		return
	}
	<-done
}

// closeQueue stops accepting turns and lets the worker exit.
func (c *Conversation) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.jobs)
}

func (c *Conversation) setCurrent(v *StreamValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = v
}

// Current returns the stream of the most recent generation, or nil if
// none has started.
func (c *Conversation) Current() *StreamValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ConversationRegistry tracks live conversations by id.
type ConversationRegistry struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

func NewConversationRegistry() *ConversationRegistry {
	return &ConversationRegistry{convs: map[string]*Conversation{}}
}

// GetOrCreate returns the conversation for id, creating it on first use.
// An empty id gets a fresh ULID.
func (r *ConversationRegistry) GetOrCreate(id string) *Conversation {
	if id == "" {
		id = ulid.Make().String()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		return c
	}
	c := newConversation(id)
	r.convs[id] = c
	return c
}

func (r *ConversationRegistry) Get(id string) (*Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	return c, ok
}

// Remove drops the conversation from the registry and stops its worker.
// The caller archives the transcript first.
func (r *ConversationRegistry) Remove(id string) error {
	r.mu.Lock()
	c, ok := r.convs[id]
	if ok {
		delete(r.convs, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}
	c.closeQueue()
	return nil
}

// List returns the ids of all live conversations.
func (r *ConversationRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.convs))
	for id := range r.convs {
		out = append(out, id)
	}
	return out
}
