package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harborbank/advisor/internal/chat"
)

// WriteStreamSSE streams generation snapshots to an HTTP response as
// Server-Sent Events. Each event is the full current snapshot; the client
// replaces its view rather than appending. A final "done" event marks the
// terminal snapshot.
func WriteStreamSSE(w http.ResponseWriter, r *http.Request, sv *chat.StreamValue) {
	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}

	snapshots, doneCh, unsub := sv.Subscribe()
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				select {
				case <-doneCh:
					fmt.Fprintf(w, "event: done\ndata: {}\n\n")
					flusher.Flush()
				default:
				}
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func sseHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx proxy compatibility
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// sseEmitter writes raw SSE frames for the playground chat stream. Unlike
// the conversation stream it carries deltas, not snapshots.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (e *sseEmitter) event(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if name != "" {
		fmt.Fprintf(e.w, "event: %s\n", name)
	}
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}
