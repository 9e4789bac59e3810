package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var eventTypes = map[string]bool{
	"wedding":    true,
	"engagement": true,
	"reception":  true,
	"other":      true,
}

type bookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	List(ctx context.Context, userID *uuid.UUID) ([]models.Booking, error)
}

type studioNotifier interface {
	NotifyBooking(ctx context.Context, b *models.Booking) error
	NotifyContact(ctx context.Context, m *models.ContactMessage) error
}

type BookingHandler struct {
	repo   bookingRepository
	notify studioNotifier
	log    *logger.Logger
}

func NewBookingHandler(repo bookingRepository, notify studioNotifier, log *logger.Logger) *BookingHandler {
	return &BookingHandler{repo: repo, notify: notify, log: log.With("handler", "booking")}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// hasControl reports control characters, which never belong in a single-line field.
func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if name := strings.TrimSpace(req.Name); name == "" {
		fields["name"] = "Name is required"
	} else if hasControl(name) {
		fields["name"] = "Name contains invalid characters"
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		fields["email"] = "Invalid email format"
	}
	if strings.TrimSpace(req.Phone) == "" {
		fields["phone"] = "Phone is required"
	} else if hasControl(req.Phone) {
		fields["phone"] = "Phone contains invalid characters"
	}
	eventDate, err := time.Parse(time.DateOnly, req.EventDate)
	if err != nil {
		fields["event_date"] = "Event date must be YYYY-MM-DD"
	}
	if req.EventType != "" && !eventTypes[req.EventType] {
		fields["event_type"] = "Event type must be wedding, engagement, reception or other"
	}
	if req.Guests != nil && *req.Guests < 1 {
		fields["guests"] = "Guests must be at least 1"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	booking := &models.Booking{
		UserID:    &userID,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     optional(req.Phone),
		EventDate: &eventDate,
		EventType: optional(req.EventType),
		Guests:    req.Guests,
		Message:   optional(req.Message),
	}
	if err := h.repo.Create(r.Context(), booking); err != nil {
		h.log.Error("failed to save booking", "error", err)
		handleServiceError(w, r, err)
		return
	}

	if err := h.notify.NotifyBooking(r.Context(), booking); err != nil {
		h.log.Warn("booking notification not queued", "booking_id", booking.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, booking)
}

// Mine lists the caller's own bookings.
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	bookings, err := h.repo.List(r.Context(), &userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.repo.List(r.Context(), nil)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}
