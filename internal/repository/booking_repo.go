package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloom-backend/internal/models"
)

type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	b.ID = uuid.New()
	query := `INSERT INTO bookings (id, user_id, name, email, phone, event_date, event_type, guests, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		b.ID, b.UserID, b.Name, b.Email, b.Phone, b.EventDate, b.EventType, b.Guests, b.Message,
	).Scan(&b.CreatedAt)
}

// List returns bookings newest first; a nil userID lists everyone's.
func (r *BookingRepo) List(ctx context.Context, userID *uuid.UUID) ([]models.Booking, error) {
	query := `SELECT id, user_id, name, email, phone, event_date, event_type, guests, message, created_at
		FROM bookings`
	args := []interface{}{}
	if userID != nil {
		query += " WHERE user_id = $1"
		args = append(args, *userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Email, &b.Phone, &b.EventDate,
			&b.EventType, &b.Guests, &b.Message, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
