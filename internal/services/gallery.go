package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
	"bloom-backend/internal/storage"
)

// GalleryPrefix is the object path prefix of every gallery image.
const GalleryPrefix = "gallery/"

const (
	DefaultGalleryPageSize = 6
	MaxGalleryPageSize     = 50

	// MaxGalleryPage keeps page*limit well inside a Postgres OFFSET.
	MaxGalleryPage = 100_000
)

// Per-file failure codes of an upload batch.
const (
	CodeContainerMissing = "STORAGE_CONTAINER_MISSING"
	CodeStoragePerm      = "STORAGE_PERMISSION"
	CodeStorageError     = "STORAGE_ERROR"
	CodeMetadataError    = "METADATA_ERROR"
)

type galleryRepository interface {
	Create(ctx context.Context, img *models.GalleryImage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryImage, error)
	List(ctx context.Context, limit, offset int) ([]models.GalleryImage, error)
	ListURLs(ctx context.Context) (map[string]struct{}, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IdentityResolver resolves the caller attached to a context.
type IdentityResolver interface {
	Current(ctx context.Context) (*models.Identity, error)
}

// GalleryPublisher pushes the full, freshly read gallery list to listeners.
type GalleryPublisher interface {
	PublishGallery(ctx context.Context, images []models.GalleryImage) error
}

// UploadFile is one locally selected file of a batch.
type UploadFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

type UploadSuccess struct {
	Index    int                 `json:"index"`
	FileName string              `json:"file_name"`
	Image    models.GalleryImage `json:"image"`
}

type UploadFailure struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
	Code     string `json:"code"`
	Message  string `json:"message"`

	err error
}

// BatchResult reports every file of a batch. Files listed in Succeeded are
// stored and registered regardless of failures elsewhere in the batch.
type BatchResult struct {
	Succeeded []UploadSuccess       `json:"succeeded"`
	Failed    []UploadFailure       `json:"failed"`
	Images    []models.GalleryImage `json:"images"`
}

func (r *BatchResult) SucceededCount() int { return len(r.Succeeded) }

// Err returns the first failure in input order, or nil.
func (r *BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return r.Failed[0].err
}

type GalleryService struct {
	store       storage.Store
	repo        galleryRepository
	identity    IdentityResolver
	publisher   GalleryPublisher
	log         *logger.Logger
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

func NewGalleryService(
	store storage.Store,
	repo galleryRepository,
	identity IdentityResolver,
	publisher GalleryPublisher,
	concurrency int,
	timeout time.Duration,
	log *logger.Logger,
) *GalleryService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &GalleryService{
		store:       store,
		repo:        repo,
		identity:    identity,
		publisher:   publisher,
		log:         log.With("service", "GalleryService"),
		concurrency: concurrency,
		timeout:     timeout,
		now:         time.Now,
	}
}

// UploadBatch uploads every file concurrently and waits for all of them to
// settle. The returned error covers only batch-level preconditions; per-file
// failures are reported in the result.
func (s *GalleryService) UploadBatch(ctx context.Context, files []UploadFile) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"images": "Please select at least one image to upload."}}
	}

	identity, err := s.identity.Current(ctx)
	if err != nil || identity == nil {
		return nil, &UnauthorizedError{Message: "Please log in again to upload images."}
	}

	type outcome struct {
		image *models.GalleryImage
		err   error
	}
	outcomes := make([]outcome, len(files))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			img, err := s.uploadOne(ctx, f)
			outcomes[i] = outcome{image: img, err: err}
			return nil
		})
	}
	g.Wait()

	result := &BatchResult{Succeeded: []UploadSuccess{}, Failed: []UploadFailure{}}
	for i, o := range outcomes {
		if o.err != nil {
			code, msg := describeUploadError(o.err)
			result.Failed = append(result.Failed, UploadFailure{
				Index: i, FileName: files[i].Name, Code: code, Message: msg, err: o.err,
			})
			s.log.Warn("gallery upload failed", "file", files[i].Name, "code", code, "error", o.err)
			continue
		}
		result.Succeeded = append(result.Succeeded, UploadSuccess{Index: i, FileName: files[i].Name, Image: *o.image})
	}

	s.log.Info("gallery batch settled",
		"user_id", identity.ID, "succeeded", len(result.Succeeded), "failed", len(result.Failed))

	if images, err := s.refresh(ctx); err == nil {
		result.Images = images
	}
	return result, nil
}

// uploadOne runs the ordered steps of one file: store, resolve URL, register.
func (s *GalleryService) uploadOne(ctx context.Context, f UploadFile) (*models.GalleryImage, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name, err := s.remoteName(f.Name)
	if err != nil {
		return nil, err
	}
	path := GalleryPrefix + name

	if err := s.store.Put(ctx, path, f.Content, f.ContentType); err != nil {
		return nil, newStorageError(s.store.Name(), err)
	}

	imageName := f.Name
	altText := stripExtension(f.Name)
	img := &models.GalleryImage{
		ImageURL:  s.store.PublicURL(path),
		ImageName: &imageName,
		AltText:   &altText,
	}

	if err := s.repo.Create(ctx, img); err != nil {
		s.removeOrphan(ctx, path)
		return nil, fmt.Errorf("failed to save image metadata: %w", err)
	}
	return img, nil
}

// removeOrphan deletes a blob whose metadata insert failed. What it cannot
// delete is left to the reconciliation sweep.
func (s *GalleryService) removeOrphan(ctx context.Context, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.store.Remove(ctx, []string{path}); err != nil {
		s.log.Error("orphaned gallery blob left in storage", "path", path, "error", err)
	}
}

// DeleteImage removes the blob (best effort) and then the metadata row. The
// fresh list is returned and republished whatever the outcome.
func (s *GalleryService) DeleteImage(ctx context.Context, id uuid.UUID, imageURL string) ([]models.GalleryImage, error) {
	if imageURL == "" {
		img, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Message: "Image not found"}
			}
			return nil, err
		}
		imageURL = img.ImageURL
	}

	path := storage.PathFromURL(imageURL, GalleryPrefix)
	if err := s.store.Remove(ctx, []string{path}); err != nil {
		s.log.Warn("gallery blob removal failed", "image_id", id, "path", path, "error", err)
	}

	delErr := s.repo.Delete(ctx, id)
	if errors.Is(delErr, pgx.ErrNoRows) {
		delErr = &NotFoundError{Message: "Image not found"}
	}

	images, _ := s.refresh(ctx)
	return images, delErr
}

// ListPage returns one page of images, newest first.
func (s *GalleryService) ListPage(ctx context.Context, page, limit int) (*models.GalleryPage, error) {
	if limit <= 0 {
		limit = DefaultGalleryPageSize
	}
	if limit > MaxGalleryPageSize {
		limit = MaxGalleryPageSize
	}
	if page < 0 {
		page = 0
	}
	if page > MaxGalleryPage {
		return nil, &ValidationError{Fields: map[string]string{"page": fmt.Sprintf("Page must be at most %d", MaxGalleryPage)}}
	}

	images, err := s.repo.List(ctx, limit, page*limit)
	if err != nil {
		return nil, err
	}
	return &models.GalleryPage{
		Images:  images,
		Page:    page,
		Limit:   limit,
		HasMore: len(images) == limit,
	}, nil
}

func (s *GalleryService) ListAll(ctx context.Context) ([]models.GalleryImage, error) {
	return s.repo.List(ctx, 0, 0)
}

// refresh re-reads the whole list and republishes it.
func (s *GalleryService) refresh(ctx context.Context) ([]models.GalleryImage, error) {
	images, err := s.repo.List(ctx, 0, 0)
	if err != nil {
		s.log.Error("failed to re-read gallery list", "error", err)
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishGallery(ctx, images); err != nil {
			s.log.Warn("failed to publish gallery list", "error", err)
		}
	}
	return images, nil
}

// remoteName builds "{epochMillis}-{randomToken}.{ext}".
func (s *GalleryService) remoteName(original string) (string, error) {
	token, err := randomToken(10)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), token)
	if ext := fileExtension(original); ext != "" {
		name += "." + ext
	}
	return name, nil
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	for i := range b {
		b[i] = tokenAlphabet[int(b[i])%len(tokenAlphabet)]
	}
	return string(b), nil
}

func fileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

var extensionPattern = regexp.MustCompile(`\.[^/.]+$`)

func stripExtension(name string) string {
	return extensionPattern.ReplaceAllString(name, "")
}

func describeUploadError(err error) (string, string) {
	var se *StorageError
	if errors.As(err, &se) {
		switch se.Kind {
		case storage.KindNotFound:
			return CodeContainerMissing, se.Message
		case storage.KindPermission:
			return CodeStoragePerm, se.Message
		default:
			return CodeStorageError, se.Message
		}
	}
	return CodeMetadataError, err.Error()
}
