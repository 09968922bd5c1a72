package conversation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"focusgallery/galleryclient"
	"focusgallery/models"
	"focusgallery/presenter"
	"focusgallery/session"

	"github.com/google/uuid"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

func (e *Engine) enterUpload(ctx context.Context, t *turn, title string) Outcome {
	categories, err := e.gallery.Categories(ctx)
	if err != nil {
		e.log(t).Error("List categories failed", "err", err)
		t.reply(presenter.Text("❌ Failed to fetch categories. Please try again later."))
		return Terminate()
	}
	if len(categories) == 0 {
		t.reply(presenter.Text("❌ No categories available."))
		return Terminate()
	}

	t.session.ClearCategory()
	t.session.ResetBatch()
	t.reply(presenter.UploadCategoryMenu(categories, title))
	return Continue(session.StateSelectCategory)
}

func (e *Engine) uploadCategory(ctx context.Context, t *turn) Outcome {
	s := t.session
	s.CategoryID = t.cb.CategoryID
	s.CategoryName = e.categoryName(ctx, s.CategoryID)
	s.Year = 0

	e.log(t).Info("Upload category selected", "category", s.CategoryID)
	t.edit(presenter.Text("✅ Category selected: %s\n\n📅 Now please enter the year for these images (e.g., 2025):", s.CategoryName))
	return Continue(session.StateGetYear)
}

func (e *Engine) uploadYear(ctx context.Context, t *turn) Outcome {
	if t.session.CategoryID == "" {
		e.log(t).Warn("Upload category missing, restarting")
		t.reply(presenter.Text("⚠️ Your upload settings were lost. Let's start over."))
		return e.enterUpload(ctx, t, "📁 Select a category for your upload:")
	}

	year, err := ParseYear(t.ev.Text)
	if err != nil {
		t.reply(presenter.Text("⚠️ Please enter a valid year between %d and %d.", MinYear, MaxYear))
		return t.stay()
	}

	t.session.Year = year
	t.session.ResetBatch()
	t.reply(presenter.Text("✅ Year set to: %d\n\n"+
		"📤 Now send me the images you want to upload, one image per message.\n\n"+
		"After each image, I'll ask what you'd like to do next.", year))
	return Continue(session.StateGetImages)
}

// ParseYear accepts an integer year in [MinYear, MaxYear].
func ParseYear(text string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", text, err)
	}
	if year < MinYear || year > MaxYear {
		return 0, fmt.Errorf("year %d out of range", year)
	}
	return year, nil
}

func (e *Engine) uploadImage(ctx context.Context, t *turn) Outcome {
	s := t.session
	if s.CategoryID == "" || s.Year == 0 {
		e.log(t).Warn("Upload settings missing, restarting")
		t.reply(presenter.Text("⚠️ Your upload settings were lost. Let's start over."))
		return e.enterUpload(ctx, t, "📁 Select a category for your upload:")
	}

	img := t.ev.Image
	if img.Document && contentType(img.MimeType) == "" {
		t.reply(presenter.Text("⚠️ Only JPG and PNG images are supported."))
		return t.stay()
	}
	if img.FileSize > MaxImageSize {
		t.reply(presenter.Text("⚠️ This image is larger than 8 MB and cannot be uploaded."))
		return t.stay()
	}

	uploaded, failed := 0, 0
	err := e.transfer(ctx, t, img)
	switch {
	case err == nil:
		uploaded = 1
	case errors.Is(err, galleryclient.ErrUnauthorized):
		e.log(t).Error("Upload credentials rejected", "err", err)
		t.reply(presenter.Text("🚫 The gallery rejected the upload credentials. Upload session ended."))
		return Terminate()
	case errors.Is(err, ErrDownloadTimeout):
		e.log(t).Warn("Image download timed out", "err", err)
		failed = 1
		t.reply(presenter.Text("⌛ Download timed out. Please try sending the image again."))
	case errors.Is(err, galleryclient.ErrValidation):
		e.log(t).Warn("Image rejected by gallery", "err", err)
		failed = 1
		t.reply(presenter.Text("⚠️ The gallery rejected this image: %s", apiMessage(err)))
	default:
		e.log(t).Error("Image upload failed", "err", err)
		failed = 1
	}

	s.Uploaded += uploaded
	s.Failed += failed
	t.reply(presenter.UploadResult(uploaded, failed), presenter.NextActionMenu())
	return Continue(session.StateNextAction)
}

// transfer downloads the image to a temp file and posts it to the gallery.
// The temp file is removed on every path.
func (e *Engine) transfer(ctx context.Context, t *turn, img *Image) error {
	ext := ".jpg"
	if contentType(img.MimeType) == "image/png" {
		ext = ".png"
	}
	path := filepath.Join(e.tempDir, "focusgallery-"+uuid.NewString()+ext)
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.log(t).Warn("Temp file cleanup failed", "path", path, "err", err)
		}
	}()

	err := e.retry.Do(ctx, func(ctx context.Context) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := e.downloader.Download(ctx, img.FileID, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", img.FileID, err)
	}

	s := t.session
	created, err := e.gallery.UploadImage(ctx, path, models.UploadRequest{
		Category:   s.CategoryID,
		Year:       s.Year,
		Tags:       "",
		UploadedBy: t.ev.UserID,
	})
	if err != nil {
		return err
	}
	e.log(t).Info("Image uploaded", "id", created.ID.Hex(), "category", s.CategoryID, "year", s.Year)
	return nil
}

func (e *Engine) askForImages(_ context.Context, t *turn) Outcome {
	t.reply(presenter.Text("⚠️ Please send actual images."))
	return t.stay()
}

func (e *Engine) moreSame(_ context.Context, t *turn) Outcome {
	t.session.ResetBatch()
	t.edit(presenter.Text("📤 Send me more images for the same category/year..."))
	return Continue(session.StateGetImages)
}

func (e *Engine) changeSettings(ctx context.Context, t *turn) Outcome {
	categories, err := e.gallery.Categories(ctx)
	if err != nil {
		e.log(t).Error("List categories failed", "err", err)
		t.reply(presenter.Text("❌ Failed to fetch categories. Please try again."))
		return t.stay()
	}
	if len(categories) == 0 {
		t.edit(presenter.Text("❌ No categories available."))
		return Terminate()
	}

	t.session.ClearCategory()
	t.session.ResetBatch()
	t.edit(presenter.UploadCategoryMenu(categories, "📁 Select a new category for your upload:"))
	return Continue(session.StateSelectCategory)
}

func (e *Engine) stopUpload(_ context.Context, t *turn) Outcome {
	t.edit(presenter.BatchSummary(t.session.Uploaded, t.session.Failed))
	return Terminate()
}

// contentType normalizes an image MIME type, returning "" when unsupported.
func contentType(mime string) string {
	switch strings.ToLower(mime) {
	case "", "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	default:
		return ""
	}
}

func apiMessage(err error) string {
	var apiErr *galleryclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
