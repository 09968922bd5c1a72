package conversation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"focusgallery/admin"
	"focusgallery/models"
	"focusgallery/presenter"
	"focusgallery/session"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	adminID  int64 = 1
	viewerID int64 = 2
	chatID   int64 = 100
)

type fakeGallery struct {
	mu            sync.Mutex
	categories    []models.Category
	images        map[string][]models.Image
	categoriesErr error
	yearsErr      error
	imagesErr     error
	uploadErr     error
	uploads       []models.UploadRequest
	uploadedPaths []string
	uploadedData  [][]byte
}

func newFakeGallery() *fakeGallery {
	g := &fakeGallery{
		categories: []models.Category{
			{ID: "gc-day", Name: "GC day"},
			{ID: "easter", Name: "Easter"},
		},
		images: map[string][]models.Image{},
	}
	for i := 0; i < 12; i++ {
		g.add("gc-day", 2025, fmt.Sprintf("https://cdn.test/2025/%d.jpg", i))
	}
	g.add("gc-day", 2023, "https://cdn.test/2023/0.jpg")
	return g
}

func imagesKey(category string, year int) string {
	return fmt.Sprintf("%s/%d", category, year)
}

func (g *fakeGallery) add(category string, year int, url string) {
	key := imagesKey(category, year)
	g.images[key] = append(g.images[key], models.Image{
		ID:         bson.NewObjectID(),
		URL:        url,
		CategoryID: category,
		Year:       year,
		UploadedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	})
}

func (g *fakeGallery) Categories(context.Context) ([]models.Category, error) {
	if g.categoriesErr != nil {
		return nil, g.categoriesErr
	}
	return g.categories, nil
}

func (g *fakeGallery) Years(_ context.Context, categoryID string) ([]int, error) {
	if g.yearsErr != nil {
		return nil, g.yearsErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	years := []int{}
	for key, items := range g.images {
		if strings.HasPrefix(key, categoryID+"/") && len(items) > 0 {
			years = append(years, items[0].Year)
		}
	}
	return years, nil
}

func (g *fakeGallery) Images(_ context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error) {
	if g.imagesErr != nil {
		return nil, g.imagesErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.images[imagesKey(categoryID, year)]
	items := []models.Image{}
	for i := (page - 1) * perPage; i < len(all) && i < page*perPage; i++ {
		items = append(items, all[i])
	}
	return &models.ImagePage{TotalCount: int64(len(all)), Page: page, PerPage: perPage, Items: items}, nil
}

func (g *fakeGallery) UploadImage(_ context.Context, path string, req models.UploadRequest) (*models.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("temp file missing during upload: %w", err)
	}
	g.uploadedPaths = append(g.uploadedPaths, path)
	g.uploadedData = append(g.uploadedData, data)
	if g.uploadErr != nil {
		return nil, g.uploadErr
	}
	g.uploads = append(g.uploads, req)
	return &models.Image{ID: bson.NewObjectID(), CategoryID: req.Category, Year: req.Year, UploadedBy: req.UploadedBy}, nil
}

var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}

type fakeDownloader struct {
	timeouts int // number of leading attempts that time out; -1 for always
	err      error
	calls    int
}

func (d *fakeDownloader) Download(_ context.Context, _ string, dst io.Writer) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	if d.timeouts < 0 || d.calls <= d.timeouts {
		dst.Write([]byte("partial"))
		return ErrDownloadTimeout
	}
	_, err := dst.Write(jpegBytes)
	return err
}

type harness struct {
	engine     *Engine
	gallery    *fakeGallery
	downloader *fakeDownloader
	store      *session.MemoryStore
	tempDir    string
	now        time.Time
	delays     []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gallery:    newFakeGallery(),
		downloader: &fakeDownloader{},
		tempDir:    t.TempDir(),
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.store = session.NewMemoryStore(session.DefaultIdleTimeout).WithClock(func() time.Time { return h.now })

	retry := DefaultRetryPolicy()
	retry.Sleep = func(_ context.Context, d time.Duration) error {
		h.delays = append(h.delays, d)
		return nil
	}
	h.engine = NewEngine(h.gallery, h.store, admin.NewPolicy(adminID), h.downloader, Options{
		TempDir: h.tempDir,
		Retry:   retry,
	})
	return h
}

func (h *harness) send(ev Event) []presenter.Reply {
	return h.engine.Handle(context.Background(), ev)
}

func (h *harness) state(t *testing.T, user int64) session.State {
	t.Helper()
	s, err := h.store.Get(context.Background(), session.Key{UserID: user, ChatID: chatID})
	if err != nil {
		return session.StateIdle
	}
	return s.State
}

func (h *harness) session(t *testing.T, user int64) *session.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), session.Key{UserID: user, ChatID: chatID})
	if err != nil {
		t.Fatalf("expected session for user %d: %v", user, err)
	}
	return s
}

func (h *harness) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func command(user int64, name string) Event {
	return Event{Kind: EventCommand, UserID: user, ChatID: chatID, FirstName: "Ada", Command: name}
}

func tap(user int64, data string) Event {
	return Event{Kind: EventCallback, UserID: user, ChatID: chatID, MessageID: 55, Data: data}
}

func message(user int64, text string) Event {
	return Event{Kind: EventText, UserID: user, ChatID: chatID, Text: text}
}

func photo(user int64, size int64) Event {
	return Event{Kind: EventImage, UserID: user, ChatID: chatID, Image: &Image{FileID: "file-1", FileSize: size}}
}

func allText(replies []presenter.Reply) string {
	var parts []string
	for _, r := range replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

func hasButton(replies []presenter.Reply, data string) bool {
	for _, r := range replies {
		for _, row := range r.Keyboard {
			for _, b := range row {
				if b.Data == data {
					return true
				}
			}
		}
	}
	return false
}
