package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultIdleTimeout discards sessions that saw no activity for five minutes.
const DefaultIdleTimeout = 300 * time.Second

var ErrNotFound = errors.New("session not found")

type Flow string

const (
	FlowNone   Flow = ""
	FlowBrowse Flow = "browse"
	FlowUpload Flow = "upload"
)

// State is the closed set of conversation states. The flow is derived from it.
type State string

const (
	StateIdle State = ""

	StateSelectingCategory State = "browse.selecting_category"
	StateSelectingYear     State = "browse.selecting_year"
	StateViewingImages     State = "browse.viewing_images"

	StateSelectCategory State = "upload.select_category"
	StateGetYear        State = "upload.get_year"
	StateGetImages      State = "upload.get_images"
	StateNextAction     State = "upload.next_action"
)

func (s State) Flow() Flow {
	switch s {
	case StateSelectingCategory, StateSelectingYear, StateViewingImages:
		return FlowBrowse
	case StateSelectCategory, StateGetYear, StateGetImages, StateNextAction:
		return FlowUpload
	default:
		return FlowNone
	}
}

func (s State) Valid() bool {
	return s == StateIdle || s.Flow() != FlowNone
}

// Key identifies a conversation: one user in one chat.
type Key struct {
	UserID int64 `json:"user_id"`
	ChatID int64 `json:"chat_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

type Session struct {
	Key          Key       `json:"key"`
	State        State     `json:"state"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	Year         int       `json:"year,omitempty"`
	Page         int       `json:"page,omitempty"`
	TotalPages   int       `json:"total_pages,omitempty"`
	Uploaded     int       `json:"uploaded,omitempty"`
	Failed       int       `json:"failed,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func New(key Key, state State) *Session {
	return &Session{Key: key, State: state}
}

func (s *Session) Flow() Flow {
	return s.State.Flow()
}

// ClearYear forgets the year selection and its paging.
func (s *Session) ClearYear() {
	s.Year = 0
	s.Page = 0
	s.TotalPages = 0
}

// ClearCategory forgets everything selected so far.
func (s *Session) ClearCategory() {
	s.CategoryID = ""
	s.CategoryName = ""
	s.ClearYear()
}

func (s *Session) ResetBatch() {
	s.Uploaded = 0
	s.Failed = 0
}

// Store keeps at most one session per Key. Get reports ErrNotFound for
// missing and idle-expired sessions alike.
type Store interface {
	Get(ctx context.Context, key Key) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Clear(ctx context.Context, key Key) error
	SweepExpired(ctx context.Context) (int, error)
}
