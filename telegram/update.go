package telegram

import (
	"strings"

	"focusgallery/conversation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventFromUpdate converts a Telegram update into a conversation event.
// It reports false for updates the bot does not react to.
func EventFromUpdate(update tgbotapi.Update) (conversation.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return conversation.Event{}, false
		}
		return conversation.Event{
			Kind:      conversation.EventCallback,
			UserID:    cq.From.ID,
			ChatID:    cq.Message.Chat.ID,
			MessageID: cq.Message.MessageID,
			FirstName: cq.From.FirstName,
			Data:      cq.Data,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}
	ev := conversation.Event{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		FirstName: msg.From.FirstName,
	}

	switch {
	case msg.IsCommand():
		ev.Kind = conversation.EventCommand
		ev.Command = strings.ToLower(msg.Command())
	case len(msg.Photo) > 0:
		// sizes are ordered smallest first
		largest := msg.Photo[len(msg.Photo)-1]
		ev.Kind = conversation.EventImage
		ev.Image = &conversation.Image{FileID: largest.FileID, FileSize: int64(largest.FileSize), MimeType: "image/jpeg"}
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		ev.Kind = conversation.EventImage
		ev.Image = &conversation.Image{
			FileID:   msg.Document.FileID,
			FileSize: int64(msg.Document.FileSize),
			MimeType: msg.Document.MimeType,
			Document: true,
		}
	case msg.Text != "":
		ev.Kind = conversation.EventText
		ev.Text = msg.Text
	default:
		return conversation.Event{}, false
	}
	return ev, true
}
