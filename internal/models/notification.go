package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationBooking = "booking"
	NotificationContact = "contact"
)

// NotificationJob is one queued studio email.
type NotificationJob struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}
