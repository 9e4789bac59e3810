package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"
	"bloom-backend/internal/storage"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{&services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&services.ConflictError{Message: "taken"}, http.StatusConflict, "CONFLICT"},
		{&services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{&services.UnauthorizedError{Message: "login"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{&services.ForbiddenError{Message: "no"}, http.StatusForbidden, "FORBIDDEN"},
		{&services.RateLimitError{Message: "slow"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{&services.StorageError{Kind: storage.KindNotFound, Message: "missing"}, http.StatusServiceUnavailable, "STORAGE_CONTAINER_MISSING"},
		{&services.StorageError{Kind: storage.KindPermission, Message: "denied"}, http.StatusForbidden, "STORAGE_PERMISSION"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-1")
			rr := httptest.NewRecorder()

			handleServiceError(rr, req, tc.err)

			assert.Equal(t, tc.want, rr.Code)
			apiErr := decodeError(t, rr)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, "req-1", apiErr.RequestID)
		})
	}
}

// ─── Chat ───

type stubChat struct{ last string }

func (s *stubChat) NewUserMessage(utterance string) models.ChatMessage {
	return models.ChatMessage{Role: models.ChatRoleUser, Content: utterance}
}

func (s *stubChat) ResolveChatReply(ctx context.Context, utterance string) models.ChatMessage {
	s.last = utterance
	return models.ChatMessage{Role: models.ChatRoleBot, Content: "Hello! How can I help you today?"}
}

func TestChatHandler_Send(t *testing.T) {
	chat := &stubChat{}
	h := NewChatHandler(chat)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"  hello  "}`))
	rr := httptest.NewRecorder()
	h.Send(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp models.ChatResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "hello", chat.last)
	assert.Equal(t, models.ChatRoleUser, resp.User.Role)
	assert.Equal(t, models.ChatRoleBot, resp.Reply.Role)
}

func TestChatHandler_RejectsEmptyMessage(t *testing.T) {
	h := NewChatHandler(&stubChat{})
	for _, body := range []string{`{"message":"   "}`, `not json`} {
		rr := httptest.NewRecorder()
		h.Send(rr, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

// ─── Gallery ───

type stubGallery struct {
	result    *services.BatchResult
	err       error
	files     []string
	deletedID uuid.UUID
	deleteURL string
}

func (s *stubGallery) UploadBatch(ctx context.Context, files []services.UploadFile) (*services.BatchResult, error) {
	for _, f := range files {
		data, _ := io.ReadAll(f.Content)
		s.files = append(s.files, f.Name+":"+string(data))
	}
	return s.result, s.err
}

func (s *stubGallery) DeleteImage(ctx context.Context, id uuid.UUID, imageURL string) ([]models.GalleryImage, error) {
	s.deletedID, s.deleteURL = id, imageURL
	return []models.GalleryImage{}, s.err
}

func (s *stubGallery) ListPage(ctx context.Context, page, limit int) (*models.GalleryPage, error) {
	return &models.GalleryPage{Images: []models.GalleryImage{}, Page: page, Limit: limit}, nil
}

func (s *stubGallery) ListAll(ctx context.Context) ([]models.GalleryImage, error) {
	return []models.GalleryImage{}, nil
}

type part struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/gallery", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func batchWith(succeeded int, failureCodes ...string) *services.BatchResult {
	r := &services.BatchResult{}
	for i := 0; i < succeeded; i++ {
		r.Succeeded = append(r.Succeeded, services.UploadSuccess{Index: i})
	}
	for _, code := range failureCodes {
		r.Failed = append(r.Failed, services.UploadFailure{Code: code})
	}
	return r
}

func TestGalleryHandler_UploadPassesEveryFile(t *testing.T) {
	gallery := &stubGallery{result: batchWith(2)}
	h := NewGalleryHandler(gallery, logger.Nop())

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartRequest(t,
		part{"a.jpg", "image/jpeg", "one"},
		part{"b.png", "image/png", "two"},
	))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []string{"a.jpg:one", "b.png:two"}, gallery.files)
}

func TestGalleryHandler_UploadRejectsNonImages(t *testing.T) {
	gallery := &stubGallery{result: batchWith(1)}
	h := NewGalleryHandler(gallery, logger.Nop())

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartRequest(t,
		part{"a.jpg", "image/jpeg", "one"},
		part{"notes.txt", "text/plain", "two"},
	))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "images[1]")
	assert.Empty(t, gallery.files, "nothing is uploaded when validation fails")
}

func TestGalleryHandler_UploadWithoutFiles(t *testing.T) {
	h := NewGalleryHandler(&stubGallery{}, logger.Nop())
	rr := httptest.NewRecorder()
	h.Upload(rr, multipartRequest(t))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadStatus(t *testing.T) {
	assert.Equal(t, http.StatusCreated, uploadStatus(batchWith(3)))
	assert.Equal(t, http.StatusMultiStatus, uploadStatus(batchWith(2, "STORAGE_CONTAINER_MISSING")))
	assert.Equal(t, http.StatusServiceUnavailable, uploadStatus(batchWith(0, "STORAGE_CONTAINER_MISSING", "METADATA_ERROR")))
	assert.Equal(t, http.StatusForbidden, uploadStatus(batchWith(0, "STORAGE_PERMISSION")))
	assert.Equal(t, http.StatusInternalServerError, uploadStatus(batchWith(0, "METADATA_ERROR")))
}

func TestGalleryHandler_UploadUnauthorized(t *testing.T) {
	gallery := &stubGallery{err: &services.UnauthorizedError{Message: "Please log in again to upload images."}}
	h := NewGalleryHandler(gallery, logger.Nop())

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartRequest(t, part{"a.jpg", "image/jpeg", "one"}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Please log in again to upload images.", decodeError(t, rr).Message)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGalleryHandler_Delete(t *testing.T) {
	gallery := &stubGallery{}
	h := NewGalleryHandler(gallery, logger.Nop())
	id := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/gallery/"+id.String(),
		strings.NewReader(`{"url":"https://storage.googleapis.com/gallery/gallery/1-abc.jpg"}`))
	rr := httptest.NewRecorder()
	h.Delete(rr, withURLParam(req, "id", id.String()))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, gallery.deletedID)
	assert.Equal(t, "https://storage.googleapis.com/gallery/gallery/1-abc.jpg", gallery.deleteURL)

	rr = httptest.NewRecorder()
	h.Delete(rr, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "nope"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGalleryHandler_DeleteNotFound(t *testing.T) {
	h := NewGalleryHandler(&stubGallery{err: &services.NotFoundError{Message: "Image not found"}}, logger.Nop())
	id := uuid.New()

	rr := httptest.NewRecorder()
	h.Delete(rr, withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String()))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ─── Bookings & contact ───

type stubBookingRepo struct {
	created *models.Booking
	listFor *uuid.UUID
}

func (s *stubBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	b.ID = uuid.New()
	s.created = b
	return nil
}

func (s *stubBookingRepo) List(ctx context.Context, userID *uuid.UUID) ([]models.Booking, error) {
	s.listFor = userID
	return []models.Booking{}, nil
}

type stubContactRepo struct{ created *models.ContactMessage }

func (s *stubContactRepo) Create(ctx context.Context, m *models.ContactMessage) error {
	s.created = m
	return nil
}

type stubNotifier struct {
	bookings, contacts int
	err                error
}

func (s *stubNotifier) NotifyBooking(ctx context.Context, b *models.Booking) error {
	s.bookings++
	return s.err
}

func (s *stubNotifier) NotifyContact(ctx context.Context, m *models.ContactMessage) error {
	s.contacts++
	return s.err
}

func TestBookingHandler_Create(t *testing.T) {
	repo, notify := &stubBookingRepo{}, &stubNotifier{err: errors.New("redis down")}
	h := NewBookingHandler(repo, notify, logger.Nop())
	userID := uuid.New()

	body := `{"name":"Ana Ruiz","email":"ana@example.com","phone":"+1 555 0100","event_date":"2026-09-12","event_type":"wedding","guests":120}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, "a failed notification does not fail the booking")
	require.NotNil(t, repo.created)
	assert.Equal(t, userID, *repo.created.UserID)
	assert.Equal(t, "wedding", *repo.created.EventType)
	assert.Nil(t, repo.created.Phone)
	assert.Equal(t, 1, notify.bookings)
}

func TestBookingHandler_Validation(t *testing.T) {
	h := NewBookingHandler(&stubBookingRepo{}, &stubNotifier{}, logger.Nop())

	body := `{"name":"","email":"nope","event_date":"12/09/2026","event_type":"party","guests":0}`
	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decodeError(t, rr).Fields
	for _, key := range []string{"name", "email", "phone", "event_date", "event_type", "guests"} {
		assert.Contains(t, fields, key)
	}

	body = `{"name":"Ana\r\nBcc: x@example.com","email":"ana@example.com","phone":"  ","event_date":"2026-09-12"}`
	rr = httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields = decodeError(t, rr).Fields
	assert.Equal(t, "Name contains invalid characters", fields["name"])
	assert.Equal(t, "Phone is required", fields["phone"])
}

func TestBookingHandler_MineScopesToCaller(t *testing.T) {
	repo := &stubBookingRepo{}
	h := NewBookingHandler(repo, &stubNotifier{}, logger.Nop())
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	h.Mine(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, repo.listFor)
	assert.Equal(t, userID, *repo.listFor)

	h.ListAll(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, repo.listFor)
}

func TestContactHandler_Create(t *testing.T) {
	repo, notify := &stubContactRepo{}, &stubNotifier{}
	h := NewContactHandler(repo, notify, logger.Nop())

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":" Ana ","email":"ana@example.com","message":"Do you travel?"}`)))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Ana", repo.created.Name)
	assert.Equal(t, 1, notify.contacts)

	rr = httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(`{"name":"Ana"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decodeError(t, rr).Fields
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "message")

	rr = httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/contact",
		strings.NewReader(`{"name":"Jane\r\nBcc: victim@example.com","email":"jane@example.com","message":"hi"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "name")
	assert.Equal(t, 1, notify.contacts)
}

// ─── Identity ───

type stubIdentity struct {
	identity *models.Identity
	err      error
}

func (s stubIdentity) Current(ctx context.Context) (*models.Identity, error) {
	return s.identity, s.err
}

func TestAuthHandler_Me(t *testing.T) {
	id := &models.Identity{ID: uuid.New(), Email: "admin@bloomweddings.com", Role: models.RoleAdmin}
	h := NewAuthHandler(nil, stubIdentity{identity: id})

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.Identity
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, *id, got)

	h = NewAuthHandler(nil, stubIdentity{err: &services.UnauthorizedError{Message: "Not signed in"}})
	rr = httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_RejectsMalformedBodies(t *testing.T) {
	h := NewAuthHandler(nil, stubIdentity{})
	for name, fn := range map[string]http.HandlerFunc{
		"register": h.Register,
		"login":    h.Login,
		"refresh":  h.Refresh,
		"logout":   h.Logout,
	} {
		rr := httptest.NewRecorder()
		fn(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}

	rr := httptest.NewRecorder()
	h.SetRole(rr, withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"role":"admin"}`)), "id", "bad"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
