package conversation

import (
	"context"

	"focusgallery/presenter"
	"focusgallery/session"
)

// Trigger is what a user did, stripped of its payload.
type Trigger string

const (
	TriggerUnknown        Trigger = "unknown"
	TriggerCategory       Trigger = "category"
	TriggerYear           Trigger = "year"
	TriggerPrevPage       Trigger = "prev_page"
	TriggerNextPage       Trigger = "next_page"
	TriggerBackYears      Trigger = "back_years"
	TriggerBackCategories Trigger = "back_categories"
	TriggerBrowseCancel   Trigger = "browse_cancel"
	TriggerUploadCategory Trigger = "upload_category"
	TriggerMoreSame       Trigger = "more_same"
	TriggerChangeSettings Trigger = "change_settings"
	TriggerStopUpload     Trigger = "stop_upload"
	TriggerText           Trigger = "text"
	TriggerImage          Trigger = "image"
)

var callbackTriggers = map[presenter.Action]Trigger{
	presenter.ActionCategory:       TriggerCategory,
	presenter.ActionYear:           TriggerYear,
	presenter.ActionPrevPage:       TriggerPrevPage,
	presenter.ActionNextPage:       TriggerNextPage,
	presenter.ActionBackYears:      TriggerBackYears,
	presenter.ActionBackCategories: TriggerBackCategories,
	presenter.ActionBrowseCancel:   TriggerBrowseCancel,
	presenter.ActionUploadCategory: TriggerUploadCategory,
	presenter.ActionMoreSame:       TriggerMoreSame,
	presenter.ActionChangeSettings: TriggerChangeSettings,
	presenter.ActionStopUpload:     TriggerStopUpload,
}

// Outcome is the result of a transition: either continue in a state or
// end the conversation and drop the session.
type Outcome struct {
	next      session.State
	terminate bool
}

func Continue(next session.State) Outcome {
	return Outcome{next: next}
}

func Terminate() Outcome {
	return Outcome{terminate: true}
}

func (o Outcome) Terminal() bool {
	return o.terminate
}

func (o Outcome) Next() session.State {
	return o.next
}

// turn is the working set of one event being handled.
type turn struct {
	ev      Event
	cb      presenter.Callback
	session *session.Session
	replies []presenter.Reply
}

func (t *turn) reply(r ...presenter.Reply) {
	t.replies = append(t.replies, r...)
}

// edit replaces the message the tapped button belonged to, when there is one.
func (t *turn) edit(r presenter.Reply) {
	r.Edit = t.ev.Kind == EventCallback && t.ev.MessageID != 0
	t.replies = append(t.replies, r)
}

// stay keeps the current state.
func (t *turn) stay() Outcome {
	return Continue(t.session.State)
}

type handler func(ctx context.Context, t *turn) Outcome

type transition struct {
	state   session.State
	trigger Trigger
}

func (e *Engine) buildTable() map[transition]handler {
	table := map[transition]handler{}
	on := func(h handler, trigger Trigger, states ...session.State) {
		for _, s := range states {
			table[transition{s, trigger}] = h
		}
	}

	browsing := []session.State{session.StateSelectingCategory, session.StateSelectingYear, session.StateViewingImages}
	on(e.browseCategory, TriggerCategory, browsing...)
	on(e.browseYear, TriggerYear, session.StateSelectingYear, session.StateViewingImages)
	on(e.turnPage(-1), TriggerPrevPage, session.StateViewingImages)
	on(e.turnPage(+1), TriggerNextPage, session.StateViewingImages)
	on(e.backToYears, TriggerBackYears, session.StateViewingImages)
	on(e.backToCategories, TriggerBackCategories, browsing...)
	on(e.browseCancel, TriggerBrowseCancel, browsing...)

	on(e.uploadCategory, TriggerUploadCategory, session.StateSelectCategory)
	on(e.uploadYear, TriggerText, session.StateGetYear)
	on(e.uploadImage, TriggerImage, session.StateGetImages, session.StateNextAction)
	on(e.askForImages, TriggerText, session.StateGetImages, session.StateNextAction)
	on(e.moreSame, TriggerMoreSame, session.StateGetImages, session.StateNextAction)
	on(e.changeSettings, TriggerChangeSettings, session.StateGetImages, session.StateNextAction)
	on(e.stopUpload, TriggerStopUpload, session.StateGetImages, session.StateNextAction)

	return table
}
