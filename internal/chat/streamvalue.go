package chat

import "sync"

type StreamStatus string

const (
	StatusStreaming StreamStatus = "STREAMING"
	StatusDone      StreamStatus = "DONE"
	StatusError     StreamStatus = "ERROR"
)

// StreamSnapshot is the full state of an in-flight assistant response at
// one instant. Each update replaces the previous snapshot wholesale; a
// subscriber that misses intermediate snapshots still renders correctly
// from the latest one.
type StreamSnapshot struct {
	Status   StreamStatus `json:"status"`
	Text     string       `json:"text,omitempty"`
	Artifact *Artifact    `json:"artifact,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// StreamValue fans out snapshots of one generation to any number of
// subscribers. Late subscribers receive the current snapshot immediately.
// Thread-safe.
type StreamValue struct {
	mu      sync.Mutex
	current StreamSnapshot
	clients map[uint64]chan StreamSnapshot
	nextID  uint64
	closed  bool
	doneCh  chan struct{}
}

func NewStreamValue() *StreamValue {
	return &StreamValue{
		current: StreamSnapshot{Status: StatusStreaming},
		clients: make(map[uint64]chan StreamSnapshot),
		doneCh:  make(chan struct{}),
	}
}

// Update replaces the current snapshot and notifies subscribers. A
// subscriber that has not drained its channel gets the stale snapshot
// replaced rather than queued behind it.
func (v *StreamValue) Update(s StreamSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.current = s
	v.broadcastLocked(s)
}

// Done marks the generation complete with a final snapshot. Idempotent
// with Fail: the first terminal call wins.
func (v *StreamValue) Done(s StreamSnapshot) {
	s.Status = StatusDone
	v.terminate(s)
}

// Fail marks the generation failed.
func (v *StreamValue) Fail(msg string) {
	v.mu.Lock()
	cur := v.current
	v.mu.Unlock()
	cur.Status = StatusError
	cur.Error = msg
	v.terminate(cur)
}

func (v *StreamValue) terminate(s StreamSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.current = s
	v.broadcastLocked(s)
	close(v.doneCh)
	for id, ch := range v.clients {
		close(ch)
		delete(v.clients, id)
	}
}

func (v *StreamValue) broadcastLocked(s StreamSnapshot) {
	for _, ch := range v.clients {
		select {
		case ch <- s:
		default:
			// Stale snapshot still queued: replace it with the fresh one.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribe returns a snapshot channel primed with the current state, a
// done channel closed on completion, and an unsubscribe function.
func (v *StreamValue) Subscribe() (<-chan StreamSnapshot, <-chan struct{}, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan StreamSnapshot, 1)
	ch <- v.current
	if v.closed {
		close(ch)
		return ch, v.doneCh, func() {}
	}

	id := v.nextID
	v.nextID++
	v.clients[id] = ch
	unsub := func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.clients[id]; ok {
			delete(v.clients, id)
			close(ch)
		}
	}
	return ch, v.doneCh, unsub
}

// Current returns the latest snapshot.
func (v *StreamValue) Current() StreamSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Closed reports whether a terminal snapshot has been published.
func (v *StreamValue) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
