package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/llm"
	"github.com/harborbank/advisor/internal/playground"
)

// validConversationID matches ULIDs, UUIDs, and other safe identifiers.
// Only alphanumeric, dashes, and underscores are allowed.
var validConversationID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"conversations": len(s.orchestrator.Conversations.List()),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	if !validConversationID.MatchString(convID) {
		writeError(w, http.StatusBadRequest, "conversation id must be alphanumeric with dashes/underscores, 1-128 chars")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	c, _, err := s.orchestrator.HandleUtterance(convID, req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, SendMessageResponse{
		ConversationID: c.ID,
		Status:         "accepted",
	})
}

func (s *Server) handleConversationStream(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	c, ok := s.orchestrator.Conversations.Get(convID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", convID))
		return
	}
	sv := c.Current()
	if sv == nil {
		writeError(w, http.StatusConflict, "no generation in progress")
		return
	}
	WriteStreamSSE(w, r, sv)
}

func (s *Server) handleConversationLog(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	c, ok := s.orchestrator.Conversations.Get(convID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", convID))
		return
	}
	writeJSON(w, http.StatusOK, ConversationLogResponse{
		ConversationID: c.ID,
		Turns:          c.Log.Turns(),
	})
}

func (s *Server) handleCloseConversation(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	snap, err := s.orchestrator.CloseConversation(convID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CloseConversationResponse{
		ConversationID: convID,
		TranscriptID:   snap.ID,
		Digest:         snap.Digest,
		ClosedAt:       time.Now().UTC(),
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListAccountsResponse{Accounts: s.accounts.List()})
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	acct, err := s.accounts.Add(accounts.Account{
		Type:    accounts.Kind(req.Type),
		Name:    req.Name,
		Balance: req.Balance,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.tools.List()
	if tools == nil {
		tools = []playground.ToolDefinition{}
	}
	writeJSON(w, http.StatusOK, ListToolsResponse{Tools: tools})
}

func (s *Server) handleSaveTool(w http.ResponseWriter, r *http.Request) {
	var td playground.ToolDefinition
	if err := json.NewDecoder(r.Body).Decode(&td); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	saved, err := s.tools.Add(td)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SaveToolResponse{Success: true, Tool: saved})
}

// handlePlaygroundChat streams a test generation against a draft tool.
// The client holds the form state; this emits text deltas and fillForm
// calls as they arrive.
func (s *Server) handlePlaygroundChat(w http.ResponseWriter, r *http.Request) {
	var req PlaygroundChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Tool.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages := []llm.Message{llm.System(playground.BuildSystemPrompt(req.Tool))}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			messages = append(messages, llm.Assistant(m.Content))
		default:
			messages = append(messages, llm.User(m.Content))
		}
	}

	stream, err := s.llmClient.Stream(r.Context(), llm.Request{
		Provider: s.config.Provider,
		Model:    s.config.Model,
		Messages: messages,
		Tools:    []llm.ToolDefinition{playground.FillFormDefinition()},
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer stream.Close()

	flusher, ok := sseHeaders(w)
	if !ok {
		return
	}
	emit := &sseEmitter{w: w, flusher: flusher}

	for ev := range stream.Events() {
		switch ev.Type {
		case llm.StreamEventTextDelta:
			emit.event("text", map[string]string{"delta": ev.Delta})
		case llm.StreamEventToolCallEnd:
			if ev.ToolCall != nil {
				emit.event("tool-call", ev.ToolCall)
			}
		case llm.StreamEventError:
			msg := "stream failed"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			emit.event("error", map[string]string{"error": msg})
			return
		}
	}
	emit.event("done", map[string]string{})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
