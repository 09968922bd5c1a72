package route_test

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
	"sort"
	"sync"
	"testing"
	"time"

	"focusgallery/controller"
	"focusgallery/media"
	"focusgallery/models"
	"focusgallery/route"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testSecret = "test-secret"

type fakeStore struct {
	mu         sync.Mutex
	categories []models.Category
	images     []models.Image
	failInsert bool
}

func (s *fakeStore) ListCategories(context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *fakeStore) ListYears(_ context.Context, categoryID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[int]bool{}
	years := []int{}
	for _, img := range s.images {
		if img.CategoryID == categoryID && !seen[img.Year] {
			seen[img.Year] = true
			years = append(years, img.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (s *fakeStore) ListImages(_ context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Image
	for i := len(s.images) - 1; i >= 0; i-- {
		if img := s.images[i]; img.CategoryID == categoryID && img.Year == year {
			matched = append(matched, img)
		}
	}
	items := []models.Image{}
	for i := (page - 1) * perPage; i < len(matched) && i < page*perPage; i++ {
		items = append(items, matched[i])
	}
	return &models.ImagePage{TotalCount: int64(len(matched)), Page: page, PerPage: perPage, Items: items}, nil
}

func (s *fakeStore) InsertImage(_ context.Context, img *models.Image) error {
	if s.failInsert {
		return errors.New("mongo down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img.ID = bson.NewObjectID()
	s.images = append(s.images, *img)
	return nil
}

type fakeUploader struct {
	calls int
	sizes []int64
}

func (u *fakeUploader) Upload(_ context.Context, blob io.Reader, size int64, contentType, folder string) (media.Result, error) {
	n, err := io.Copy(io.Discard, blob)
	if err != nil {
		return media.Result{}, err
	}
	u.calls++
	u.sizes = append(u.sizes, n)
	key := fmt.Sprintf("%s/%d", folder, u.calls)
	return media.Result{URL: "https://cdn.test/" + key, MediaID: key}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStore, *fakeUploader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &fakeStore{categories: []models.Category{
		{ID: "gc-day", Name: "GC day", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "easter", Name: "Easter", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	uploader := &fakeUploader{}
	gallery := controller.NewGallery(store, uploader, "focus_gallery")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := route.New(ctx, gallery, route.Options{APIKey: testSecret})
	return router, store, uploader
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

var magic = map[string][]byte{
	"image/jpeg": {0xff, 0xd8, 0xff},
	"image/png":  []byte("\x89PNG\r\n\x1a\n"),
}

// imageBytes returns size bytes starting with the signature for contentType.
func imageBytes(contentType string, size int) []byte {
	data := bytes.Repeat([]byte{0xff}, size)
	copy(data, magic[contentType])
	return data
}

func uploadRequest(t *testing.T, fields map[string]string, contentType string, size int, auth string) *http.Request {
	t.Helper()
	return multipartRequest(t, fields, contentType, imageBytes(contentType, size), auth)
}

func multipartRequest(t *testing.T, fields map[string]string, contentType string, body []byte, auth string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="photo.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"category":    "gc-day",
		"year":        "2025",
		"tags":        "choir, stage,,",
		"uploaded_by": "42",
	}
}

func TestRoot(t *testing.T) {
	router, _, _ := newTestRouter(t)
	if w := get(router, "/"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := get(router, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetCategoriesIsRepeatable(t *testing.T) {
	router, _, _ := newTestRouter(t)

	first := get(router, "/api/v1/categories")
	second := get(router, "/api/v1/categories")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies, got %s vs %s", first.Body.String(), second.Body.String())
	}

	var categories []map[string]any
	if err := json.Unmarshal(first.Body.Bytes(), &categories); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	for _, key := range []string{"id", "name", "created_at"} {
		if _, ok := categories[0][key]; !ok {
			t.Fatalf("category missing %q: %v", key, categories[0])
		}
	}
}

func TestGetYears(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.images = []models.Image{
		{CategoryID: "gc-day", Year: 2023},
		{CategoryID: "gc-day", Year: 2025},
		{CategoryID: "gc-day", Year: 2024},
		{CategoryID: "easter", Year: 2020},
	}

	w := get(router, "/api/v1/images/years?category=gc-day")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "[2025,2024,2023]" {
		t.Fatalf("unexpected years %s", got)
	}

	if w := get(router, "/api/v1/images/years?category=manuscript"); w.Body.String() != "[]" {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}
	if w := get(router, "/api/v1/images/years"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without category, got %d", w.Code)
	}
}

func TestGetImagesValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	cases := map[string]int{
		"/api/v1/images?category=gc-day&year=2025":                    http.StatusOK,
		"/api/v1/images?category=gc-day&year=2025&page=1&per_page=1":  http.StatusOK,
		"/api/v1/images?category=gc-day&year=2025&page=1&per_page=20": http.StatusOK,
		"/api/v1/images?category=gc-day&year=2025&page=1&per_page=21": http.StatusBadRequest,
		"/api/v1/images?category=gc-day&year=2025&page=1&per_page=0":  http.StatusBadRequest,
		"/api/v1/images?category=gc-day&year=2025&page=0":             http.StatusBadRequest,
		"/api/v1/images?category=gc-day&year=abc":                     http.StatusBadRequest,
		"/api/v1/images?year=2025":                                    http.StatusBadRequest,
		"/api/v1/images?category=gc-day":                              http.StatusBadRequest,
	}
	for path, want := range cases {
		if w := get(router, path); w.Code != want {
			t.Fatalf("%s: expected %d, got %d (%s)", path, want, w.Code, w.Body.String())
		}
	}
}

func TestGetImagesDefaultsAndShape(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := get(router, "/api/v1/images?category=gc-day&year=2025")
	var page map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page["page"] != float64(1) || page["per_page"] != float64(5) || page["total_count"] != float64(0) {
		t.Fatalf("unexpected page envelope %v", page)
	}
	if items, ok := page["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", page["items"])
	}
}

func TestUploadRequiresBearerSecret(t *testing.T) {
	router, _, uploader := newTestRouter(t)

	for _, auth := range []string{"", "Bearer wrong", testSecret} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, validFields(), "image/jpeg", 10, auth))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("auth %q: expected 401, got %d", auth, w.Code)
		}
	}
	if uploader.calls != 0 {
		t.Fatalf("uploader must not be called without credentials")
	}
}

func TestUploadRejectsWrongContentType(t *testing.T) {
	router, _, uploader := newTestRouter(t)

	for _, contentType := range []string{"text/plain", "image/gif", "application/octet-stream"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, validFields(), contentType, 10, "Bearer "+testSecret))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", contentType, w.Code)
		}
	}
	if uploader.calls != 0 {
		t.Fatalf("uploader must not be called for rejected content")
	}
}

func TestUploadRejectsMismatchedContent(t *testing.T) {
	router, _, uploader := newTestRouter(t)

	bodies := map[string][]byte{
		"image/jpeg": []byte("GIF89a not really a jpeg"),
		"image/png":  imageBytes("image/jpeg", 64),
	}
	for contentType, body := range bodies {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, multipartRequest(t, validFields(), contentType, body, "Bearer "+testSecret))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", contentType, w.Code)
		}
	}
	if uploader.calls != 0 {
		t.Fatalf("uploader must not be called for mismatched content")
	}
}

func TestUploadRejectsInvalidFields(t *testing.T) {
	router, _, _ := newTestRouter(t)

	bad := []map[string]string{
		{"category": "gc-day", "year": "twenty", "uploaded_by": "42"},
		{"year": "2025", "uploaded_by": "42"},
		{"category": "gc-day", "year": "2025"},
	}
	for _, fields := range bad {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, fields, "image/jpeg", 10, "Bearer "+testSecret))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("fields %v: expected 400, got %d", fields, w.Code)
		}
	}
}

func TestUploadSizeBoundary(t *testing.T) {
	router, _, uploader := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, validFields(), "image/jpeg", controller.MaxUploadSize, "Bearer "+testSecret))
	if w.Code != http.StatusOK {
		t.Fatalf("expected exactly 8 MiB to be accepted, got %d (%s)", w.Code, w.Body.String())
	}
	if len(uploader.sizes) != 1 || uploader.sizes[0] != controller.MaxUploadSize {
		t.Fatalf("unexpected uploaded sizes %v", uploader.sizes)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, validFields(), "image/png", controller.MaxUploadSize+1, "Bearer "+testSecret))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 8 MiB + 1 to be rejected, got %d", w.Code)
	}
	if uploader.calls != 1 {
		t.Fatalf("oversize upload must not reach the uploader")
	}
}

func TestUploadRoundTrip(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, validFields(), "image/jpeg", 128, "Bearer "+testSecret))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var created models.Image
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID.IsZero() || created.URL == "" || created.MediaID == "" {
		t.Fatalf("created record incomplete: %+v", created)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "choir" || created.Tags[1] != "stage" {
		t.Fatalf("unexpected tags %v", created.Tags)
	}

	list := get(router, "/api/v1/images?category=gc-day&year=2025&page=1")
	var page models.ImagePage
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	matches := 0
	for _, item := range page.Items {
		if item.ID == created.ID {
			matches++
			if item.URL != created.URL || item.UploadedBy != 42 || len(item.Tags) != 2 {
				t.Fatalf("listed record differs: %+v vs %+v", item, created)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected uploaded image exactly once, got %d", matches)
	}

	if years := get(router, "/api/v1/images/years?category=gc-day"); years.Body.String() != "[2025]" {
		t.Fatalf("unexpected years after upload %s", years.Body.String())
	}
}

func TestUploadStoreFailure(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.failInsert = true

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, validFields(), "image/jpeg", 16, "Bearer "+testSecret))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
