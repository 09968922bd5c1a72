package galleryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"focusgallery/cache"
	"focusgallery/models"
)

var (
	ErrValidation   = errors.New("gallery api rejected the request")
	ErrUnauthorized = errors.New("gallery api rejected the credentials")
	ErrUnavailable  = errors.New("gallery api unavailable")
)

// APIError is a failed call. Kind is one of the Err* sentinels.
type APIError struct {
	Kind    error
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	cache    cache.Store
	cacheTTL time.Duration
}

// DefaultTimeout bounds one request, including an image upload.
const DefaultTimeout = 30 * time.Second

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache keeps categories and year lists for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if c.cached(ctx, "categories", &categories) {
		return categories, nil
	}
	if err := c.getJSON(ctx, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	c.store(ctx, "categories", categories)
	return categories, nil
}

// Years returns the distinct years of a category, newest first.
func (c *Client) Years(ctx context.Context, categoryID string) ([]int, error) {
	key := yearsKey(categoryID)
	var years []int
	if c.cached(ctx, key, &years) {
		return years, nil
	}
	query := url.Values{"category": {categoryID}}
	if err := c.getJSON(ctx, "/images/years", query, &years); err != nil {
		return nil, err
	}
	c.store(ctx, key, years)
	return years, nil
}

func (c *Client) Images(ctx context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error) {
	query := url.Values{
		"category": {categoryID},
		"year":     {strconv.Itoa(year)},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var result models.ImagePage
	if err := c.getJSON(ctx, "/images", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadImage posts the file at path with the shared secret.
func (c *Client) UploadImage(ctx context.Context, path string, req models.UploadRequest) (*models.Image, error) {
	if c.apiKey == "" {
		return nil, &APIError{Kind: ErrUnauthorized, Message: "BOT_BACKEND_API_KEY is not set"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := [][2]string{
		{"category", req.Category},
		{"year", strconv.Itoa(req.Year)},
		{"tags", req.Tags},
		{"uploaded_by", strconv.FormatInt(req.UploadedBy, 10)},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", imageContentType(data))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var img models.Image
	if err := c.do(httpReq, &img); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Delete(ctx, yearsKey(req.Category)); err != nil {
			slog.Warn("Years cache invalidation failed", "category", req.Category, "err", err)
		}
	}
	return &img, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: ErrUnavailable, Status: resp.StatusCode, Message: "failed to decode response body: " + err.Error()}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(raw))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		message = body.Error
	}

	kind := ErrUnavailable
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		kind = ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrUnauthorized
	}
	return &APIError{Kind: kind, Status: resp.StatusCode, Message: message}
}

func (c *Client) cached(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("Cache read failed", "key", key, "err", err)
		}
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *Client) store(ctx context.Context, key string, value any) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(raw), c.cacheTTL); err != nil {
		slog.Warn("Cache write failed", "key", key, "err", err)
	}
}

func yearsKey(categoryID string) string {
	return "years:" + categoryID
}

func imageContentType(data []byte) string {
	if http.DetectContentType(data) == "image/png" {
		return "image/png"
	}
	return "image/jpeg"
}
