package models

const (
	ChatRoleUser = "user"
	ChatRoleBot  = "bot"
)

// ChatMessage is one entry of a chat widget conversation. It is never persisted.
type ChatMessage struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"` // "user" or "bot"
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	Images    []string `json:"images,omitempty"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse echoes the user message and carries the bot reply.
type ChatResponse struct {
	User  ChatMessage `json:"user"`
	Reply ChatMessage `json:"reply"`
}
