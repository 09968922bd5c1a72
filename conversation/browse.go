package conversation

import (
	"context"
	"errors"

	"focusgallery/galleryclient"
	"focusgallery/presenter"
	"focusgallery/session"
)

func (e *Engine) enterBrowse(ctx context.Context, t *turn) Outcome {
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
	t.reply(presenter.BrowseCategoryMenu(categories))
	return Continue(session.StateSelectingCategory)
}

func (e *Engine) restartBrowse(ctx context.Context, t *turn) Outcome {
	e.log(t).Warn("Browse selection missing, restarting")
	t.reply(presenter.Text("⚠️ Your selection was lost. Let's start over."))
	return e.enterBrowse(ctx, t)
}

func (e *Engine) browseCategory(ctx context.Context, t *turn) Outcome {
	id := t.cb.CategoryID
	years, err := e.gallery.Years(ctx, id)
	if err != nil {
		return e.browseFailure(t, "years", err)
	}

	s := t.session
	s.CategoryID = id
	s.CategoryName = e.categoryName(ctx, id)
	s.ClearYear()

	if len(years) == 0 {
		t.edit(presenter.NoYears())
		return Continue(session.StateSelectingCategory)
	}
	t.edit(presenter.YearMenu(s.CategoryName, years))
	return Continue(session.StateSelectingYear)
}

func (e *Engine) browseYear(ctx context.Context, t *turn) Outcome {
	s := t.session
	if s.CategoryID == "" {
		return e.restartBrowse(ctx, t)
	}

	year := t.cb.Year
	page, err := e.gallery.Images(ctx, s.CategoryID, year, 1, e.perPage)
	if err != nil {
		return e.browseFailure(t, "images", err)
	}

	s.Year = year
	s.Page = 1
	s.TotalPages = page.TotalPages()
	t.reply(presenter.ImagePage(s.CategoryName, year, page)...)
	return Continue(session.StateViewingImages)
}

func (e *Engine) turnPage(delta int) handler {
	return func(ctx context.Context, t *turn) Outcome {
		s := t.session
		if s.CategoryID == "" || s.Year == 0 || s.Page < 1 {
			return e.restartBrowse(ctx, t)
		}

		target := s.Page + delta
		if target < 1 || target > s.TotalPages {
			t.reply(presenter.Text("⚠️ There are no more pages in that direction."))
			return t.stay()
		}

		page, err := e.gallery.Images(ctx, s.CategoryID, s.Year, target, e.perPage)
		if err != nil {
			return e.browseFailure(t, "images", err)
		}

		s.Page = target
		s.TotalPages = page.TotalPages()
		t.reply(presenter.ImagePage(s.CategoryName, s.Year, page)...)
		return Continue(session.StateViewingImages)
	}
}

func (e *Engine) backToYears(ctx context.Context, t *turn) Outcome {
	s := t.session
	if s.CategoryID == "" {
		return e.restartBrowse(ctx, t)
	}

	years, err := e.gallery.Years(ctx, s.CategoryID)
	if err != nil {
		return e.browseFailure(t, "years", err)
	}

	s.ClearYear()
	if len(years) == 0 {
		t.edit(presenter.NoYears())
		return Continue(session.StateSelectingCategory)
	}
	t.edit(presenter.YearMenu(s.CategoryName, years))
	return Continue(session.StateSelectingYear)
}

func (e *Engine) backToCategories(ctx context.Context, t *turn) Outcome {
	categories, err := e.gallery.Categories(ctx)
	if err != nil {
		return e.browseFailure(t, "categories", err)
	}
	if len(categories) == 0 {
		t.edit(presenter.Text("❌ No categories available."))
		return Terminate()
	}

	t.session.ClearCategory()
	t.edit(presenter.BrowseCategoryMenu(categories))
	return Continue(session.StateSelectingCategory)
}

func (e *Engine) browseCancel(_ context.Context, t *turn) Outcome {
	t.edit(presenter.Text("👋 Browsing ended. Use /browse to start again."))
	return Terminate()
}

// browseFailure reports a gallery error and leaves the session untouched.
func (e *Engine) browseFailure(t *turn, what string, err error) Outcome {
	e.log(t).Error("Gallery request failed", "what", what, "err", err)

	msg := "❌ Failed to load " + what + ". Please try again."
	if errors.Is(err, galleryclient.ErrValidation) {
		msg = "⚠️ That selection is no longer valid."
	}
	t.reply(presenter.Failure(msg, true))
	return t.stay()
}
