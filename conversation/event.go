package conversation

import "focusgallery/session"

type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
	EventImage
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	case EventImage:
		return "image"
	default:
		return "unknown"
	}
}

// Image is an incoming picture, either a photo or an image document.
type Image struct {
	FileID   string
	FileSize int64 // 0 when the client did not report it
	MimeType string
	Document bool
}

// Event is one inbound user action, independent of the chat transport.
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	MessageID int // message that carried the tapped button
	FirstName string
	Command   string // without the leading slash
	Data      string // callback data
	Text      string
	Image     *Image
}

func (e Event) Key() session.Key {
	return session.Key{UserID: e.UserID, ChatID: e.ChatID}
}
