package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloom-backend/internal/models"
)

type GalleryRepo struct {
	pool *pgxpool.Pool
}

func NewGalleryRepo(pool *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{pool: pool}
}

func (r *GalleryRepo) Create(ctx context.Context, img *models.GalleryImage) error {
	img.ID = uuid.New()
	query := `INSERT INTO gallery_images (id, image_url, image_name, alt_text)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, img.ID, img.ImageURL, img.ImageName, img.AltText).Scan(&img.CreatedAt)
}

func (r *GalleryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryImage, error) {
	img := &models.GalleryImage{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, image_url, image_name, alt_text, created_at FROM gallery_images WHERE id = $1`, id,
	).Scan(&img.ID, &img.ImageURL, &img.ImageName, &img.AltText, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// List returns images newest first. limit <= 0 means no limit. The id
// tie-break keeps offset pages stable when created_at collides.
func (r *GalleryRepo) List(ctx context.Context, limit, offset int) ([]models.GalleryImage, error) {
	query := `SELECT id, image_url, image_name, alt_text, created_at
		FROM gallery_images ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []models.GalleryImage{}
	for rows.Next() {
		var img models.GalleryImage
		if err := rows.Scan(&img.ID, &img.ImageURL, &img.ImageName, &img.AltText, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ListURLs returns every stored image URL.
func (r *GalleryRepo) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, "SELECT image_url FROM gallery_images")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

// Delete returns pgx.ErrNoRows when nothing was deleted.
func (r *GalleryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM gallery_images WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
