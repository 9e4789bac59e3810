package models

import (
	"time"

	"github.com/google/uuid"
)

type GalleryImage struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"image_url"`
	ImageName *string   `json:"image_name"`
	AltText   *string   `json:"alt_text"`
	CreatedAt time.Time `json:"created_at"`
}

type GalleryPage struct {
	Images  []GalleryImage `json:"images"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	HasMore bool           `json:"has_more"`
}

type DeleteGalleryImageRequest struct {
	URL string `json:"url"`
}
