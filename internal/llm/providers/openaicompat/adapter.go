package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborbank/advisor/internal/llm"
)

type Config struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Path         string
	ExtraHeaders map[string]string
}

// Adapter speaks the chat-completions dialect shared by OpenAI and
// compatible gateways.
type Adapter struct {
	cfg    Config
	client *http.Client
}

const defaultRequestTimeout = 10 * time.Minute

func NewAdapter(cfg Config) *Adapter {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "/v1/chat/completions"
	}
	return &Adapter{
		cfg: cfg,
		// Rely on request context deadlines, not a client-level timeout.
		client: &http.Client{Timeout: 0},
	}
}

func (a *Adapter) Name() string { return a.cfg.Provider }

// withDefaultDeadline bounds requests that arrive without a deadline.
func withDefaultDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultRequestTimeout)
}

func (a *Adapter) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+a.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, llm.WrapContextError(a.cfg.Provider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.cfg.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	requestCtx, cancel := withDefaultDeadline(ctx)
	defer cancel()

	body, err := requestBody(req, false)
	if err != nil {
		return llm.Response{}, err
	}
	httpReq, err := a.newRequest(requestCtx, body)
	if err != nil {
		return llm.Response{}, err
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return llm.Response{}, llm.WrapContextError(a.cfg.Provider, err)
	}
	defer resp.Body.Close()
	return parseResponse(a.cfg.Provider, req.Model, resp)
}

func (a *Adapter) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	baseCtx, baseCancel := withDefaultDeadline(ctx)
	sctx, cancel := context.WithCancel(baseCtx)
	cancelAll := func() {
		cancel()
		baseCancel()
	}

	body, err := requestBody(req, true)
	if err != nil {
		cancelAll()
		return nil, err
	}
	httpReq, err := a.newRequest(sctx, body)
	if err != nil {
		cancelAll()
		return nil, err
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		cancelAll()
		return nil, llm.WrapContextError(a.cfg.Provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancelAll()
		_, perr := parseResponse(a.cfg.Provider, req.Model, resp)
		return nil, perr
	}

	s := llm.NewChanStream(cancelAll)
	go func() {
		defer cancelAll()
		defer resp.Body.Close()
		defer s.CloseSend()

		s.Send(llm.StreamEvent{Type: llm.StreamEventStreamStart})
		state := &streamState{
			provider: a.cfg.Provider,
			model:    req.Model,
			textID:   "assistant_text",
		}

		err := llm.ParseSSE(sctx, resp.Body, func(ev llm.SSEEvent) error {
			payload := strings.TrimSpace(string(ev.Data))
			if payload == "" {
				return nil
			}
			if payload == "[DONE]" {
				state.finish(s)
				return nil
			}
			var chunk chatChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				return err
			}
			state.apply(s, chunk)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.Send(llm.StreamEvent{
				Type: llm.StreamEventError,
				Err:  llm.NewStreamError(a.cfg.Provider, err.Error()),
			})
		}
		if errors.Is(err, context.Canceled) {
			s.Send(llm.StreamEvent{
				Type: llm.StreamEventError,
				Err:  llm.WrapContextError(a.cfg.Provider, err),
			})
		}
	}()
	return s, nil
}

// Wire shapes. Only the fields this adapter consumes are declared.

type chatChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

type wireToolCall struct {
	Index    *int   `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func requestBody(req llm.Request, stream bool) ([]byte, error) {
	body := map[string]any{
		"model":    req.Model,
		"messages": wireMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, td := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        td.Name,
					"description": td.Description,
					"parameters":  td.Parameters,
				},
			})
		}
		body["tools"] = tools
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = wireToolChoice(*req.ToolChoice)
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		body["max_tokens"] = *req.MaxTokens
	}
	if stream {
		body["stream"] = true
		body["stream_options"] = map[string]any{"include_usage": true}
	}
	return json.Marshal(body)
}

func wireMessages(msgs []llm.Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		entry := map[string]any{"role": string(m.Role)}
		var textParts []string
		var toolCalls []map[string]any
		for _, p := range m.Content {
			switch p.Kind {
			case llm.ContentText:
				if strings.TrimSpace(p.Text) != "" {
					textParts = append(textParts, p.Text)
				}
			case llm.ContentToolCall:
				if p.ToolCall != nil {
					toolCalls = append(toolCalls, map[string]any{
						"id":   p.ToolCall.ID,
						"type": "function",
						"function": map[string]any{
							"name":      p.ToolCall.Name,
							"arguments": string(p.ToolCall.Arguments),
						},
					})
				}
			case llm.ContentToolResult:
				if p.ToolResult != nil {
					entry["role"] = "tool"
					entry["tool_call_id"] = p.ToolResult.ToolCallID
					entry["content"] = resultText(p.ToolResult.Content)
				}
			}
		}
		if _, ok := entry["content"]; !ok {
			entry["content"] = strings.Join(textParts, "\n")
		}
		if len(toolCalls) > 0 {
			entry["tool_calls"] = toolCalls
		}
		out = append(out, entry)
	}
	return out
}

func wireToolChoice(tc llm.ToolChoice) any {
	switch strings.ToLower(strings.TrimSpace(tc.Mode)) {
	case "", "auto":
		return "auto"
	case "none":
		return "none"
	case "required":
		return "required"
	case "named":
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.Name},
		}
	default:
		return "auto"
	}
}

func parseResponse(provider, model string, resp *http.Response) (llm.Response, error) {
	rawBytes, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return llm.Response{}, llm.WrapContextError(provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(rawBytes)
		ra := llm.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return llm.Response{}, llm.ErrorFromHTTPStatus(provider, resp.StatusCode, msg, ra)
	}

	var raw struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content   string         `json:"content"`
				ToolCalls []wireToolCall `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *wireUsage `json:"usage"`
	}
	if err := json.Unmarshal(rawBytes, &raw); err != nil {
		return llm.Response{}, llm.NewStreamError(provider, fmt.Sprintf("malformed response body: %v", err))
	}
	if len(raw.Choices) == 0 {
		return llm.Response{}, llm.NewStreamError(provider, "response missing choices")
	}
	choice := raw.Choices[0]

	msg := llm.Assistant(choice.Message.Content)
	for _, c := range choice.Message.ToolCalls {
		msg.Content = append(msg.Content, llm.ContentPart{
			Kind: llm.ContentToolCall,
			ToolCall: &llm.ToolCallData{
				ID:        c.ID,
				Type:      firstNonEmpty(c.Type, "function"),
				Name:      c.Function.Name,
				Arguments: json.RawMessage(c.Function.Arguments),
			},
		})
	}

	out := llm.Response{
		ID:       raw.ID,
		Provider: provider,
		Model:    firstNonEmpty(model, raw.Model),
		Message:  msg,
		Finish: llm.FinishReason{
			Reason: normalizeFinishReason(choice.FinishReason),
			Raw:    choice.FinishReason,
		},
	}
	if raw.Usage != nil {
		out.Usage = llm.Usage{
			InputTokens:  raw.Usage.PromptTokens,
			OutputTokens: raw.Usage.CompletionTokens,
			TotalTokens:  raw.Usage.TotalTokens,
		}
	}
	return out, nil
}

func errorMessage(rawBytes []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rawBytes, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(rawBytes))
}

func resultText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// streamState accumulates chunk deltas into the final Response while
// emitting incremental events.
type streamState struct {
	provider string
	model    string
	textID   string

	text     strings.Builder
	textOpen bool

	toolSeq  []string
	tools    map[string]*streamToolCall
	nextID   int
	finished bool

	finishReason llm.FinishReason
	usage        llm.Usage
}

type streamToolCall struct {
	id      string
	name    string
	args    strings.Builder
	started bool
	ended   bool
}

func (st *streamState) apply(s *llm.ChanStream, chunk chatChunk) {
	if chunk.Usage != nil {
		st.usage = llm.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
			TotalTokens:  chunk.Usage.TotalTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		if !st.textOpen {
			st.textOpen = true
			s.Send(llm.StreamEvent{Type: llm.StreamEventTextStart, TextID: st.textID})
		}
		st.text.WriteString(choice.Delta.Content)
		s.Send(llm.StreamEvent{
			Type:   llm.StreamEventTextDelta,
			TextID: st.textID,
			Delta:  choice.Delta.Content,
		})
	}

	for i, raw := range choice.Delta.ToolCalls {
		st.applyToolCallDelta(s, toolCallKey(raw, i), raw)
	}

	if fin := strings.TrimSpace(choice.FinishReason); fin != "" {
		st.finishReason = llm.FinishReason{Reason: normalizeFinishReason(fin), Raw: fin}
	}
}

func toolCallKey(raw wireToolCall, ordinal int) string {
	if raw.Index != nil {
		return fmt.Sprintf("idx:%d", *raw.Index)
	}
	if raw.ID != "" {
		return "id:" + raw.ID
	}
	return fmt.Sprintf("ord:%d", ordinal)
}

func (st *streamState) ensure(key string) *streamToolCall {
	if st.tools == nil {
		st.tools = map[string]*streamToolCall{}
	}
	tc := st.tools[key]
	if tc == nil {
		tc = &streamToolCall{}
		st.tools[key] = tc
		st.toolSeq = append(st.toolSeq, key)
	}
	return tc
}

func (st *streamState) callID(tc *streamToolCall) string {
	if strings.TrimSpace(tc.id) != "" {
		return tc.id
	}
	st.nextID++
	tc.id = fmt.Sprintf("tool_call_%d", st.nextID)
	return tc.id
}

func (st *streamState) applyToolCallDelta(s *llm.ChanStream, key string, raw wireToolCall) {
	tc := st.ensure(key)
	if raw.ID != "" && tc.id == "" {
		tc.id = raw.ID
	}
	if raw.Function.Name != "" {
		tc.name = raw.Function.Name
	}
	if !tc.started {
		tc.started = true
		s.Send(llm.StreamEvent{Type: llm.StreamEventToolCallStart, ToolCall: &llm.ToolCallData{
			ID:   st.callID(tc),
			Type: "function",
			Name: tc.name,
		}})
	}
	if raw.Function.Arguments != "" {
		tc.args.WriteString(raw.Function.Arguments)
		s.Send(llm.StreamEvent{Type: llm.StreamEventToolCallDelta, ToolCall: &llm.ToolCallData{
			ID:        st.callID(tc),
			Type:      "function",
			Name:      tc.name,
			Arguments: json.RawMessage(tc.args.String()),
		}})
	}
}

func (st *streamState) finish(s *llm.ChanStream) {
	if st.finished {
		return
	}
	st.finished = true
	if st.textOpen {
		s.Send(llm.StreamEvent{Type: llm.StreamEventTextEnd, TextID: st.textID})
		st.textOpen = false
	}

	msg := llm.Assistant(st.text.String())
	for _, key := range st.toolSeq {
		tc := st.tools[key]
		if tc == nil {
			continue
		}
		data := llm.ToolCallData{
			ID:        st.callID(tc),
			Type:      "function",
			Name:      tc.name,
			Arguments: json.RawMessage(tc.args.String()),
		}
		if !tc.ended {
			tc.ended = true
			d := data
			s.Send(llm.StreamEvent{Type: llm.StreamEventToolCallEnd, ToolCall: &d})
		}
		p := data
		msg.Content = append(msg.Content, llm.ContentPart{Kind: llm.ContentToolCall, ToolCall: &p})
	}

	finish := st.finishReason
	if strings.TrimSpace(finish.Reason) == "" {
		finish = llm.FinishReason{Reason: "stop", Raw: "stop"}
	}
	resp := llm.Response{
		Provider: st.provider,
		Model:    st.model,
		Message:  msg,
		Finish:   finish,
		Usage:    st.usage,
	}
	s.Send(llm.StreamEvent{
		Type:         llm.StreamEventFinish,
		FinishReason: &resp.Finish,
		Usage:        &resp.Usage,
		Response:     &resp,
	})
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return strings.TrimSpace(b)
}

func normalizeFinishReason(in string) string {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "tool_calls":
		return "tool_call"
	case "length":
		return "max_tokens"
	default:
		return strings.ToLower(strings.TrimSpace(in))
	}
}
