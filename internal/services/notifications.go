package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bloom-backend/internal/models"
)

// NotificationQueueName is the Redis list drained by the worker pool.
const NotificationQueueName = "queue:notifications"

// NotificationQueue renders studio notifications and queues them for delivery.
type NotificationQueue struct {
	redis *redis.Client
	email *EmailService
}

func NewNotificationQueue(redisClient *redis.Client, email *EmailService) *NotificationQueue {
	return &NotificationQueue{redis: redisClient, email: email}
}

func (q *NotificationQueue) NotifyBooking(ctx context.Context, b *models.Booking) error {
	subject, body := q.email.BookingNotification(b)
	return q.enqueue(ctx, models.NotificationBooking, subject, body)
}

func (q *NotificationQueue) NotifyContact(ctx context.Context, m *models.ContactMessage) error {
	subject, body := q.email.ContactNotification(m)
	return q.enqueue(ctx, models.NotificationContact, subject, body)
}

func (q *NotificationQueue) enqueue(ctx context.Context, kind, subject, body string) error {
	job := models.NotificationJob{
		ID:        uuid.New(),
		Kind:      kind,
		To:        q.email.StudioInbox(),
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.redis.LPush(ctx, NotificationQueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}
