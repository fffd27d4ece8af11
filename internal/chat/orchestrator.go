package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborbank/advisor/internal/llm"
	"github.com/harborbank/advisor/internal/transcript"
)

const DefaultGenerationTimeout = 120 * time.Second

// Orchestrator drives one assistant turn per user utterance: commit the
// user turn, stream a generation, then commit either an assistant text
// turn or a tool call/result pair. Utterances within a conversation are
// serialized; a second send waits for the first turn to finish.
type Orchestrator struct {
	Client        *llm.Client
	Provider      string
	Model         string
	Tools         *ToolRegistry
	Conversations *ConversationRegistry
	Transcripts   *transcript.Store
	SystemPrompt  string
	Timeout       time.Duration
	Logger        *slog.Logger
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultGenerationTimeout
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// HandleUtterance starts a turn for the given conversation and returns
// the stream of the resulting generation. The returned StreamValue is
// live immediately; the turn itself runs in the background and waits for
// any in-flight turn on the same conversation.
func (o *Orchestrator) HandleUtterance(conversationID, text string) (*Conversation, *StreamValue, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("utterance is empty")
	}
	c := o.Conversations.GetOrCreate(conversationID)
	sv := NewStreamValue()

	err := c.enqueue(func() {
		c.setCurrent(sv)
		o.runTurn(c, sv, text)
	})
	if err != nil {
		return nil, nil, err
	}

	return c, sv, nil
}

func (o *Orchestrator) runTurn(c *Conversation, sv *StreamValue, text string) {
	log := o.logger().With("conversation", c.ID)
	log.Info("user message", "chars", len(text))

	if err := c.Log.Append(userTurn(text)); err != nil {
		sv.Fail(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout())
	defer cancel()

	req := llm.Request{
		Provider: o.Provider,
		Model:    o.Model,
		Messages: append([]llm.Message{llm.System(o.SystemPrompt)}, c.Log.Messages()...),
		Tools:    o.Tools.Definitions(),
	}

	stream, err := o.Client.Stream(ctx, req)
	if err != nil {
		log.Error("generation failed to start", "error", err)
		sv.Fail(err.Error())
		return
	}
	defer stream.Close()

	var drafted strings.Builder
	var call *llm.ToolCallData
	var streamErr error

events:
	for ev := range stream.Events() {
		switch ev.Type {
		case llm.StreamEventTextDelta:
			drafted.WriteString(ev.Delta)
			sv.Update(StreamSnapshot{Status: StatusStreaming, Text: drafted.String()})
		case llm.StreamEventToolCallEnd:
			if ev.ToolCall != nil && call == nil {
				cc := *ev.ToolCall
				call = &cc
				// First tool call wins; stop consuming the stream.
				break events
			}
		case llm.StreamEventError:
			streamErr = ev.Err
			break events
		}
	}

	if streamErr != nil {
		log.Error("generation failed", "error", streamErr)
		sv.Fail(streamErr.Error())
		return
	}
	if err := llm.WrapContextError(o.Provider, ctx.Err()); err != nil {
		log.Error("generation timed out", "error", err)
		sv.Fail(err.Error())
		return
	}

	if call != nil {
		o.runToolTurn(ctx, c, sv, log, *call)
		return
	}

	// Text path: the drafted text is the assistant turn.
	final := drafted.String()
	if err := c.Log.Append(assistantTextTurn(final)); err != nil {
		sv.Fail(err.Error())
		return
	}
	log.Info("assistant response", "chars", len(final))
	sv.Done(StreamSnapshot{Text: final})
}

// runToolTurn validates and runs a single tool call. The call and its
// result commit together or not at all; drafted text from the same
// generation is superseded by the tool's artifact.
func (o *Orchestrator) runToolTurn(ctx context.Context, c *Conversation, sv *StreamValue, log *slog.Logger, call llm.ToolCallData) {
	if strings.TrimSpace(call.ID) == "" {
		call.ID = uuid.NewString()
	}

	tool, args, err := o.Tools.Validate(call)
	if err != nil {
		log.Error("tool call rejected", "tool", call.Name, "error", err)
		sv.Fail(err.Error())
		return
	}

	log.Info("running tool", "tool", call.Name, "call", call.ID)
	out, err := tool.Generate(ctx, args)
	if err != nil {
		log.Error("tool failed", "tool", call.Name, "error", err)
		sv.Fail(err.Error())
		return
	}

	if err := c.Log.AppendPair(assistantToolCallTurn(call), toolResultTurn(call, out.Result)); err != nil {
		sv.Fail(err.Error())
		return
	}
	sv.Done(StreamSnapshot{Artifact: out.Artifact})
}

// CloseConversation archives the conversation's transcript and removes it
// from the registry. Returns the archived snapshot.
func (o *Orchestrator) CloseConversation(conversationID string) (transcript.Snapshot, error) {
	c, ok := o.Conversations.Get(conversationID)
	if !ok {
		return transcript.Snapshot{}, fmt.Errorf("conversation %s not found", conversationID)
	}

	// Wait for any in-flight turn so the archive holds complete pairs.
	c.drain()

	var snap transcript.Snapshot
	if o.Transcripts != nil {
		var err error
		snap, err = o.Transcripts.Archive(c.ID, c.Log.Turns())
		if err != nil {
			return transcript.Snapshot{}, fmt.Errorf("archive transcript: %w", err)
		}
	}
	if err := o.Conversations.Remove(c.ID); err != nil {
		return transcript.Snapshot{}, err
	}
	o.logger().Info("conversation closed", "conversation", c.ID, "turns", c.Log.Len())
	return snap, nil
}
