package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"
)

const (
	maxImageSize      = 25 << 20
	maxImagesPerBatch = 20
	multipartMemory   = 32 << 20
)

type galleryManager interface {
	UploadBatch(ctx context.Context, files []services.UploadFile) (*services.BatchResult, error)
	DeleteImage(ctx context.Context, id uuid.UUID, imageURL string) ([]models.GalleryImage, error)
	ListPage(ctx context.Context, page, limit int) (*models.GalleryPage, error)
	ListAll(ctx context.Context) ([]models.GalleryImage, error)
}

type GalleryHandler struct {
	gallery galleryManager
	log     *logger.Logger
}

func NewGalleryHandler(gallery galleryManager, log *logger.Logger) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, log: log.With("handler", "gallery")}
}

// List serves the public, paginated gallery.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.gallery.ListPage(r.Context(), page, limit)
	if err != nil {
		h.log.Error("gallery list failed", "error", err)
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GalleryHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	images, err := h.gallery.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

// Upload accepts a multipart batch under the "images" field. Every file is
// attempted; the status reflects how many made it.
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImagesPerBatch*maxImageSize+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart upload", r))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"images": "Please select at least one image to upload."}, r))
		return
	}
	if len(headers) > maxImagesPerBatch {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"images": fmt.Sprintf("At most %d images per upload.", maxImagesPerBatch)}, r))
		return
	}
	if fields := validateImageHeaders(headers); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.log.Error("failed to open uploaded file", "file", fh.Filename, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read uploaded file", r))
			return
		}
		defer f.Close()
		files = append(files, services.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	result, err := h.gallery.UploadBatch(r.Context(), files)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, uploadStatus(result), result)
}

func validateImageHeaders(headers []*multipart.FileHeader) map[string]string {
	fields := map[string]string{}
	for i, fh := range headers {
		key := fmt.Sprintf("images[%d]", i)
		switch {
		case fh.Size > maxImageSize:
			fields[key] = fmt.Sprintf("%s exceeds the 25MB limit", fh.Filename)
		case !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/"):
			fields[key] = fmt.Sprintf("%s is not an image", fh.Filename)
		}
	}
	return fields
}

// uploadStatus is 201 when every file landed and 207 when only some did.
// When none did, the first failure decides.
func uploadStatus(result *services.BatchResult) int {
	switch {
	case len(result.Failed) == 0:
		return http.StatusCreated
	case len(result.Succeeded) > 0:
		return http.StatusMultiStatus
	}

	switch result.Failed[0].Code {
	case services.CodeContainerMissing:
		return http.StatusServiceUnavailable
	case services.CodeStoragePerm:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid image ID", r))
		return
	}

	// The body is optional; without a URL the stored one is used.
	var req models.DeleteGalleryImageRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	images, err := h.gallery.DeleteImage(r.Context(), id, req.URL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}
