package server

import (
	"time"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/chat"
	"github.com/harborbank/advisor/internal/playground"
)

// SendMessageRequest is the POST /conversations/{id}/messages body.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse acknowledges an accepted utterance. The generation
// streams on GET /conversations/{id}/stream.
type SendMessageResponse struct {
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

// ConversationLogResponse is returned by GET /conversations/{id}/log.
type ConversationLogResponse struct {
	ConversationID string      `json:"conversationId"`
	Turns          []chat.Turn `json:"turns"`
}

// CloseConversationResponse is returned by POST /conversations/{id}/close.
type CloseConversationResponse struct {
	ConversationID string    `json:"conversationId"`
	TranscriptID   string    `json:"transcriptId,omitempty"`
	Digest         string    `json:"digest,omitempty"`
	ClosedAt       time.Time `json:"closedAt"`
}

// ListAccountsResponse is returned by GET /accounts.
type ListAccountsResponse struct {
	Accounts []accounts.Account `json:"accounts"`
}

// OpenAccountRequest is the POST /accounts body.
type OpenAccountRequest struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance,omitempty"`
}

// SaveToolResponse is returned by POST /tools.
type SaveToolResponse struct {
	Success bool                      `json:"success"`
	Tool    playground.ToolDefinition `json:"tool"`
}

// ListToolsResponse is returned by GET /tools.
type ListToolsResponse struct {
	Tools []playground.ToolDefinition `json:"tools"`
}

// PlaygroundChatRequest is the POST /playground/chat body.
type PlaygroundChatRequest struct {
	Messages []PlaygroundMessage       `json:"messages"`
	Tool     playground.ToolDefinition `json:"tool"`
}

// PlaygroundMessage is a minimal chat message for playground testing.
type PlaygroundMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrorResponse is a standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
