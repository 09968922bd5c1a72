package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"focusgallery/models"
	"focusgallery/presenter"
	"focusgallery/session"
)

// MaxImageSize matches the gallery API upload limit.
const MaxImageSize = 8 << 20

type Gallery interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Years(ctx context.Context, categoryID string) ([]int, error)
	Images(ctx context.Context, categoryID string, year, page, perPage int) (*models.ImagePage, error)
	UploadImage(ctx context.Context, path string, req models.UploadRequest) (*models.Image, error)
}

// Downloader fetches a chat file into dst. Timeouts are reported as
// ErrDownloadTimeout so they can be retried.
type Downloader interface {
	Download(ctx context.Context, fileID string, dst io.Writer) error
}

type Admins interface {
	IsAdmin(userID int64) bool
	Authorize(userID int64) error
}

type Options struct {
	PerPage int
	TempDir string
	Retry   RetryPolicy
	Logger  *slog.Logger
}

// Engine runs the browse and upload conversations. It is safe for
// concurrent use as long as events of one session are not handled
// concurrently (see Dispatcher).
type Engine struct {
	gallery    Gallery
	sessions   session.Store
	admins     Admins
	downloader Downloader
	perPage    int
	tempDir    string
	retry      RetryPolicy
	logger     *slog.Logger
	table      map[transition]handler
}

func NewEngine(gallery Gallery, sessions session.Store, admins Admins, downloader Downloader, opts Options) *Engine {
	e := &Engine{
		gallery:    gallery,
		sessions:   sessions,
		admins:     admins,
		downloader: downloader,
		perPage:    opts.PerPage,
		tempDir:    opts.TempDir,
		retry:      opts.Retry,
		logger:     opts.Logger,
	}
	if e.perPage < 1 || e.perPage > models.MaxPerPage {
		e.perPage = models.DefaultPerPage
	}
	if e.tempDir == "" {
		e.tempDir = os.TempDir()
	}
	if e.retry.Attempts == 0 {
		e.retry = DefaultRetryPolicy()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.table = e.buildTable()
	return e
}

// Handle runs one event to completion and returns the replies to send.
func (e *Engine) Handle(ctx context.Context, ev Event) []presenter.Reply {
	if ev.Kind == EventCommand {
		return e.command(ctx, ev)
	}

	s, err := e.sessions.Get(ctx, ev.Key())
	if errors.Is(err, session.ErrNotFound) {
		return []presenter.Reply{noSession(ev)}
	}
	if err != nil {
		e.logger.Error("Session load failed", "user_id", ev.UserID, "chat_id", ev.ChatID, "err", err)
		return []presenter.Reply{presenter.Text("❌ Something went wrong. Please try again.")}
	}

	t := &turn{ev: ev, session: s}
	trigger := e.classify(t)
	h, ok := e.table[transition{s.State, trigger}]
	if !ok {
		e.log(t).Info("Trigger not available", "trigger", trigger)
		t.reply(notAvailable(s.State, trigger))
		return t.replies
	}

	e.apply(ctx, t, h(ctx, t))
	return t.replies
}

func (e *Engine) classify(t *turn) Trigger {
	switch t.ev.Kind {
	case EventCallback:
		t.cb = presenter.ParseCallback(t.ev.Data)
		if trigger, ok := callbackTriggers[t.cb.Action]; ok {
			return trigger
		}
		return TriggerUnknown
	case EventText:
		return TriggerText
	case EventImage:
		if t.ev.Image == nil {
			return TriggerUnknown
		}
		return TriggerImage
	default:
		return TriggerUnknown
	}
}

func (e *Engine) apply(ctx context.Context, t *turn, o Outcome) {
	if o.Terminal() || o.Next() == session.StateIdle {
		if err := e.sessions.Clear(ctx, t.session.Key); err != nil {
			e.log(t).Error("Session clear failed", "err", err)
		}
		return
	}

	t.session.State = o.Next()
	if err := e.sessions.Put(ctx, t.session); err != nil {
		e.log(t).Error("Session save failed", "err", err)
		t.reply(presenter.Text("❌ Something went wrong. Please try again."))
	}
}

func (e *Engine) command(ctx context.Context, ev Event) []presenter.Reply {
	key := ev.Key()
	switch ev.Command {
	case "start", "help":
		return []presenter.Reply{presenter.Welcome(ev.FirstName, e.admins.IsAdmin(ev.UserID))}

	case "id":
		return []presenter.Reply{presenter.UserID(ev.UserID)}

	case "categories":
		categories, err := e.gallery.Categories(ctx)
		if err != nil {
			e.logger.Error("List categories failed", "user_id", ev.UserID, "chat_id", ev.ChatID, "err", err)
			return []presenter.Reply{presenter.Text("❌ Failed to fetch categories.")}
		}
		if len(categories) == 0 {
			return []presenter.Reply{presenter.Text("❌ No categories available.")}
		}
		return []presenter.Reply{presenter.CategoryList(categories)}

	case "browse":
		t := &turn{ev: ev, session: session.New(key, session.StateIdle)}
		e.apply(ctx, t, e.enterBrowse(ctx, t))
		return t.replies

	case "upload":
		if err := e.admins.Authorize(ev.UserID); err != nil {
			e.logger.Info("Upload refused", "user_id", ev.UserID, "chat_id", ev.ChatID, "err", err)
			return []presenter.Reply{presenter.Text("🚫 You are not authorized to use this command.")}
		}
		t := &turn{ev: ev, session: session.New(key, session.StateIdle)}
		e.apply(ctx, t, e.enterUpload(ctx, t, "📁 Select a category for your upload:"))
		return t.replies

	case "cancel":
		return []presenter.Reply{e.cancel(ctx, ev)}

	default:
		return []presenter.Reply{presenter.Text("Unknown command. Use /help to see what I can do.")}
	}
}

func (e *Engine) cancel(ctx context.Context, ev Event) presenter.Reply {
	s, err := e.sessions.Get(ctx, ev.Key())
	if err != nil {
		return presenter.Text("Nothing to cancel.")
	}
	if err := e.sessions.Clear(ctx, ev.Key()); err != nil {
		e.logger.Error("Session clear failed", "user_id", ev.UserID, "chat_id", ev.ChatID, "err", err)
	}
	if s.Flow() == session.FlowUpload {
		return presenter.Text("❌ Upload process cancelled.")
	}
	return presenter.Text("👋 Browsing cancelled. Use /browse to start again.")
}

// RunSweeper drops idle sessions every interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := e.sessions.SweepExpired(ctx)
			if err != nil {
				e.logger.Warn("Session sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				e.logger.Debug("Expired sessions removed", "count", removed)
			}
		}
	}
}

func (e *Engine) categoryName(ctx context.Context, id string) string {
	categories, err := e.gallery.Categories(ctx)
	if err != nil {
		return id
	}
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func (e *Engine) log(t *turn) *slog.Logger {
	return e.logger.With(
		"user_id", t.ev.UserID,
		"chat_id", t.ev.ChatID,
		"flow", t.session.Flow(),
		"state", t.session.State,
	)
}

func noSession(ev Event) presenter.Reply {
	if ev.Kind == EventCallback {
		return presenter.Text("⌛ This menu has expired. Use /browse or /upload to start again.")
	}
	return presenter.Text("Use /browse to view images, or /upload to add new ones (admins only).")
}

func notAvailable(state session.State, trigger Trigger) presenter.Reply {
	switch {
	case state == session.StateGetYear && trigger == TriggerImage:
		return presenter.Text("📅 Please enter the year first (e.g., 2025).")
	case state == session.StateSelectCategory && trigger == TriggerText:
		return presenter.Text("📁 Please pick a category from the menu above.")
	case state.Flow() == session.FlowBrowse && trigger == TriggerText:
		return presenter.Text("Please use the buttons above, or /cancel to stop browsing.")
	case trigger == TriggerImage:
		return presenter.Text("⚠️ Images are only accepted during /upload.")
	default:
		return presenter.Text("⚠️ That option is not available right now.")
	}
}
