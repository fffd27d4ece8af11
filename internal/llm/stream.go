package llm

import (
	"context"
	"sync"
)

type StreamEventType string

const (
	StreamEventStreamStart   StreamEventType = "STREAM_START"
	StreamEventTextStart     StreamEventType = "TEXT_START"
	StreamEventTextDelta     StreamEventType = "TEXT_DELTA"
	StreamEventTextEnd       StreamEventType = "TEXT_END"
	StreamEventToolCallStart StreamEventType = "TOOL_CALL_START"
	StreamEventToolCallDelta StreamEventType = "TOOL_CALL_DELTA"
	StreamEventToolCallEnd   StreamEventType = "TOOL_CALL_END"
	StreamEventFinish        StreamEventType = "FINISH"
	StreamEventError         StreamEventType = "ERROR"
)

// StreamEvent is one incremental output of a provider stream. Delta carries
// text increments; ToolCall deltas carry the accumulated argument bytes so
// far. The FINISH event carries the assembled final Response.
type StreamEvent struct {
	Type StreamEventType

	TextID string
	Delta  string

	ToolCall *ToolCallData

	FinishReason *FinishReason
	Usage        *Usage
	Response     *Response

	Err error
}

// Stream is a single-producer sequence of events terminated by closing the
// events channel. Close aborts the underlying request.
type Stream interface {
	Events() <-chan StreamEvent
	Close()
}

// ChanStream is the channel-backed Stream used by all adapters. The producer
// goroutine calls Send then CloseSend; consumers range over Events.
type ChanStream struct {
	ch     chan StreamEvent
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func NewChanStream(cancel context.CancelFunc) *ChanStream {
	return &ChanStream{
		ch:     make(chan StreamEvent, 64),
		cancel: cancel,
	}
}

// Send delivers an event to the consumer. Safe to call concurrently with
// CloseSend; events sent after close are dropped.
func (s *ChanStream) Send(ev StreamEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ch := s.ch
	s.mu.Unlock()
	ch <- ev
}

// CloseSend terminates the event sequence. Idempotent.
func (s *ChanStream) CloseSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *ChanStream) Events() <-chan StreamEvent { return s.ch }

// Close aborts the producing request. The producer is responsible for
// observing cancellation and calling CloseSend.
func (s *ChanStream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}
