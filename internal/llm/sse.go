package llm

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
)

// SSEEvent is one server-sent event: an optional event name plus the
// concatenated data lines.
type SSEEvent struct {
	Name string
	Data []byte
}

// ParseSSE reads a text/event-stream body and invokes fn for every complete
// event. Returns the first fn error, a read error, or ctx.Err on cancellation.
func ParseSSE(ctx context.Context, r io.Reader, fn func(SSEEvent) error) error {
	scanner := bufio.NewScanner(r)
	// Provider chunks can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var name string
	var data bytes.Buffer
	flush := func() error {
		if name == "" && data.Len() == 0 {
			return nil
		}
		ev := SSEEvent{Name: name, Data: append([]byte(nil), data.Bytes()...)}
		name = ""
		data.Reset()
		return fn(ev)
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keep-alive
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return flush()
}
