package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone"`
	EventDate *time.Time `json:"event_date"`
	EventType *string    `json:"event_type"` // "wedding" | "engagement" | "reception" | "other"
	Guests    *int       `json:"guests"`
	Message   *string    `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateBookingRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	EventDate string `json:"event_date"` // YYYY-MM-DD
	EventType string `json:"event_type"`
	Guests    *int   `json:"guests"`
	Message   string `json:"message"`
}

type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
