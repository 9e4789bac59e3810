package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloom-backend/internal/models"
)

type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

func (r *ContactRepo) Create(ctx context.Context, m *models.ContactMessage) error {
	m.ID = uuid.New()
	query := `INSERT INTO contact_messages (id, name, email, message)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, m.ID, m.Name, m.Email, m.Message).Scan(&m.CreatedAt)
}
