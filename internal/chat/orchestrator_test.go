package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/llm"
)

// scriptedAdapter replays a fixed sequence of stream events per call.
// Each call consumes the next script.
type scriptedAdapter struct {
	mu      sync.Mutex
	scripts [][]llm.StreamEvent
	calls   []llm.Request
}

func (a *scriptedAdapter) Name() string { return "scripted" }

func (a *scriptedAdapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{}, fmt.Errorf("not implemented")
}

func (a *scriptedAdapter) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	if len(a.scripts) == 0 {
		a.mu.Unlock()
		return nil, fmt.Errorf("no script left")
	}
	script := a.scripts[0]
	a.scripts = a.scripts[1:]
	a.mu.Unlock()

	_, cancel := context.WithCancel(ctx)
	s := llm.NewChanStream(cancel)
	go func() {
		defer s.CloseSend()
		for _, ev := range script {
			s.Send(ev)
		}
	}()
	return s, nil
}

func (a *scriptedAdapter) requests() []llm.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Request, len(a.calls))
	copy(out, a.calls)
	return out
}

func textScript(chunks ...string) []llm.StreamEvent {
	evs := []llm.StreamEvent{{Type: llm.StreamEventStreamStart}, {Type: llm.StreamEventTextStart, TextID: "t0"}}
	for _, c := range chunks {
		evs = append(evs, llm.StreamEvent{Type: llm.StreamEventTextDelta, TextID: "t0", Delta: c})
	}
	evs = append(evs,
		llm.StreamEvent{Type: llm.StreamEventTextEnd, TextID: "t0"},
		llm.StreamEvent{Type: llm.StreamEventFinish},
	)
	return evs
}

func toolScript(name string, args string) []llm.StreamEvent {
	call := &llm.ToolCallData{ID: "call_1", Type: "function", Name: name, Arguments: json.RawMessage(args)}
	return []llm.StreamEvent{
		{Type: llm.StreamEventStreamStart},
		{Type: llm.StreamEventToolCallStart, ToolCall: call},
		{Type: llm.StreamEventToolCallEnd, ToolCall: call},
		{Type: llm.StreamEventFinish},
	}
}

func newTestOrchestrator(t *testing.T, scripts ...[]llm.StreamEvent) (*Orchestrator, *scriptedAdapter) {
	t.Helper()
	adapter := &scriptedAdapter{scripts: scripts}
	client := llm.NewClient()
	client.Register(adapter)

	reg := NewToolRegistry()
	if err := RegisterBankingTools(reg, accounts.NewSeededStore()); err != nil {
		t.Fatalf("register tools: %v", err)
	}

	return &Orchestrator{
		Client:        client,
		Provider:      "scripted",
		Model:         "test-model",
		Tools:         reg,
		Conversations: NewConversationRegistry(),
		SystemPrompt:  SystemPrompt(nil),
		Timeout:       5 * time.Second,
	}, adapter
}

func waitDone(t *testing.T, sv *StreamValue) StreamSnapshot {
	t.Helper()
	_, doneCh, unsub := sv.Subscribe()
	defer unsub()
	select {
	case <-doneCh:
		return sv.Current()
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
		return StreamSnapshot{}
	}
}

func TestHandleUtterance_TextPath(t *testing.T) {
	o, adapter := newTestOrchestrator(t, textScript("Hello", ", ", "saver!"))

	c, sv, err := o.HandleUtterance("conv-1", "hi there")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Status != StatusDone {
		t.Fatalf("status = %s, want %s", snap.Status, StatusDone)
	}
	if snap.Text != "Hello, saver!" {
		t.Errorf("text = %q", snap.Text)
	}

	turns := c.Log.Turns()
	if len(turns) != 2 {
		t.Fatalf("log has %d turns, want 2", len(turns))
	}
	if turns[0].Kind != TurnUser || turns[0].Message.Text() != "hi there" {
		t.Errorf("turn 0 = %+v", turns[0])
	}
	if turns[1].Kind != TurnAssistant || turns[1].Message.Text() != "Hello, saver!" {
		t.Errorf("turn 1 = %+v", turns[1])
	}

	reqs := adapter.requests()
	if len(reqs) != 1 {
		t.Fatalf("adapter saw %d requests", len(reqs))
	}
	if reqs[0].Messages[0].Role != llm.RoleSystem {
		t.Error("request missing leading system message")
	}
	if got := len(reqs[0].Tools); got != 3 {
		t.Errorf("request carried %d tools, want 3", got)
	}
}

func TestHandleUtterance_ToolPath(t *testing.T) {
	o, _ := newTestOrchestrator(t, toolScript("showAccounts", `{}`))

	c, sv, err := o.HandleUtterance("conv-tools", "show my accounts")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Status != StatusDone {
		t.Fatalf("status = %s (err %q)", snap.Status, snap.Error)
	}
	if snap.Artifact == nil || snap.Artifact.Kind != ArtifactAccounts {
		t.Fatalf("artifact = %+v", snap.Artifact)
	}
	if len(snap.Artifact.Accounts) != 4 {
		t.Errorf("artifact has %d accounts, want 4", len(snap.Artifact.Accounts))
	}

	turns := c.Log.Turns()
	if len(turns) != 3 {
		t.Fatalf("log has %d turns, want 3 (user, call, result)", len(turns))
	}
	call := firstToolCall(turns[1].Message)
	if call == nil || call.Name != "showAccounts" {
		t.Fatalf("turn 1 tool call = %+v", call)
	}
	res := firstToolResult(turns[2].Message)
	if res == nil || res.ToolCallID != call.ID {
		t.Fatalf("turn 2 result = %+v, want call id %q", res, call.ID)
	}
	if res.Content != "Displaying account overview" {
		t.Errorf("result content = %v", res.Content)
	}
}

func TestHandleUtterance_ToolArtifactSupersedesDraftedText(t *testing.T) {
	call := &llm.ToolCallData{ID: "call_9", Type: "function", Name: "openAccount", Arguments: json.RawMessage(`{}`)}
	script := []llm.StreamEvent{
		{Type: llm.StreamEventStreamStart},
		{Type: llm.StreamEventTextDelta, TextID: "t0", Delta: "Let me open"},
		{Type: llm.StreamEventTextDelta, TextID: "t0", Delta: " that form"},
		{Type: llm.StreamEventToolCallEnd, ToolCall: call},
		{Type: llm.StreamEventFinish},
	}
	o, _ := newTestOrchestrator(t, script)

	c, sv, err := o.HandleUtterance("conv-mixed", "open an account")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Artifact == nil || snap.Artifact.Kind != ArtifactAccountForm {
		t.Fatalf("artifact = %+v", snap.Artifact)
	}
	if snap.Text != "" {
		t.Errorf("final snapshot still carries drafted text %q", snap.Text)
	}
	// Drafted text never becomes a committed assistant turn.
	for _, turn := range c.Log.Turns() {
		if turn.Kind == TurnAssistant && strings.Contains(turn.Message.Text(), "Let me open") {
			t.Errorf("drafted text leaked into log: %+v", turn)
		}
	}
}

func TestHandleUtterance_UnknownToolFailsWithoutCommit(t *testing.T) {
	o, _ := newTestOrchestrator(t, toolScript("transferFunds", `{}`))

	c, sv, err := o.HandleUtterance("conv-unknown", "wire everything offshore")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Status != StatusError {
		t.Fatalf("status = %s, want %s", snap.Status, StatusError)
	}
	if !strings.Contains(snap.Error, "unknown tool") {
		t.Errorf("error = %q", snap.Error)
	}
	// Only the user turn commits.
	if got := c.Log.Len(); got != 1 {
		t.Errorf("log has %d turns, want 1", got)
	}
}

func TestHandleUtterance_InvalidToolArgsFailWithoutCommit(t *testing.T) {
	o, _ := newTestOrchestrator(t, toolScript("showRMDCalculator", `{"prefillData":{"registrationType":"corporate"}}`))

	c, sv, err := o.HandleUtterance("conv-badargs", "rmd please")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Status != StatusError {
		t.Fatalf("status = %s, want %s", snap.Status, StatusError)
	}
	if got := c.Log.Len(); got != 1 {
		t.Errorf("log has %d turns, want 1", got)
	}
}

func TestHandleUtterance_StreamErrorFailsWithoutAssistantCommit(t *testing.T) {
	script := []llm.StreamEvent{
		{Type: llm.StreamEventStreamStart},
		{Type: llm.StreamEventTextDelta, Delta: "partial"},
		{Type: llm.StreamEventError, Err: llm.NewStreamError("scripted", "connection reset")},
	}
	o, _ := newTestOrchestrator(t, script)

	c, sv, err := o.HandleUtterance("conv-err", "hello")
	if err != nil {
		t.Fatalf("HandleUtterance: %v", err)
	}
	snap := waitDone(t, sv)

	if snap.Status != StatusError {
		t.Fatalf("status = %s, want %s", snap.Status, StatusError)
	}
	if got := c.Log.Len(); got != 1 {
		t.Errorf("log has %d turns, want 1 (user only)", got)
	}
}

func TestHandleUtterance_SerializesTurnsPerConversation(t *testing.T) {
	o, _ := newTestOrchestrator(t,
		textScript("first response"),
		textScript("second response"),
	)

	c, sv1, err := o.HandleUtterance("conv-serial", "first")
	if err != nil {
		t.Fatalf("first HandleUtterance: %v", err)
	}
	_, sv2, err := o.HandleUtterance("conv-serial", "second")
	if err != nil {
		t.Fatalf("second HandleUtterance: %v", err)
	}
	waitDone(t, sv1)
	waitDone(t, sv2)

	turns := c.Log.Turns()
	if len(turns) != 4 {
		t.Fatalf("log has %d turns, want 4", len(turns))
	}
	want := []struct {
		kind TurnKind
		text string
	}{
		{TurnUser, "first"},
		{TurnAssistant, "first response"},
		{TurnUser, "second"},
		{TurnAssistant, "second response"},
	}
	for i, w := range want {
		if turns[i].Kind != w.kind || turns[i].Message.Text() != w.text {
			t.Errorf("turn %d = %s %q, want %s %q", i, turns[i].Kind, turns[i].Message.Text(), w.kind, w.text)
		}
	}
}

func TestHandleUtterance_EmptyUtteranceRejected(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if _, _, err := o.HandleUtterance("conv-empty", "   "); err == nil {
		t.Fatal("expected error for blank utterance")
	}
}

func TestCloseConversation_Unknown(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if _, err := o.CloseConversation("nope"); err == nil {
		t.Fatal("expected error for unknown conversation")
	}
}
