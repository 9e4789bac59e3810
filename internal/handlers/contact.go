package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
)

type contactRepository interface {
	Create(ctx context.Context, m *models.ContactMessage) error
}

type ContactHandler struct {
	repo   contactRepository
	notify studioNotifier
	log    *logger.Logger
}

func NewContactHandler(repo contactRepository, notify studioNotifier, log *logger.Logger) *ContactHandler {
	return &ContactHandler{repo: repo, notify: notify, log: log.With("handler", "contact")}
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
	}

	fields := map[string]string{}
	if msg.Name == "" {
		fields["name"] = "Name is required"
	} else if hasControl(msg.Name) {
		fields["name"] = "Name contains invalid characters"
	}
	if !emailPattern.MatchString(msg.Email) {
		fields["email"] = "Invalid email format"
	}
	if msg.Message == "" {
		fields["message"] = "Message is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if err := h.repo.Create(r.Context(), msg); err != nil {
		h.log.Error("failed to save contact message", "error", err)
		handleServiceError(w, r, err)
		return
	}

	if err := h.notify.NotifyContact(r.Context(), msg); err != nil {
		h.log.Warn("contact notification not queued", "message_id", msg.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Thanks! We'll be in touch soon."})
}
