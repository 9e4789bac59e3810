package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bloom-backend/internal/models"
)

const maxChatMessageLen = 2000

type chatResolver interface {
	NewUserMessage(utterance string) models.ChatMessage
	ResolveChatReply(ctx context.Context, utterance string) models.ChatMessage
}

type ChatHandler struct {
	chat chatResolver
}

func NewChatHandler(chat chatResolver) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send answers one visitor message. The reply is always a displayable bot
// message; remote failures fall back to the keyword rules.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}
	if len(message) > maxChatMessageLen {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is too long", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		User:  h.chat.NewUserMessage(message),
		Reply: h.chat.ResolveChatReply(r.Context(), message),
	})
}
