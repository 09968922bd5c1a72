package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"focusgallery/conversation"
	"focusgallery/presenter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxAlbumSize is Telegram's limit for one media group.
const maxAlbumSize = 10

// API is the part of *tgbotapi.BotAPI the adapter uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev conversation.Event) bool
}

// Adapter moves events and replies between Telegram and the conversation
// engine, and downloads files users send.
type Adapter struct {
	api             API
	http            *http.Client
	downloadTimeout time.Duration
	logger          *slog.Logger
}

// Connect authenticates the bot token against Telegram.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}
	return bot, nil
}

func NewAdapter(api API, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		api:             api,
		http:            &http.Client{},
		downloadTimeout: conversation.DownloadAttemptTimeout,
		logger:          logger,
	}
}

// Run long-polls for updates and hands them to d until ctx is done.
func (a *Adapter) Run(ctx context.Context, d Dispatcher) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := a.api.GetUpdatesChan(cfg)
	defer a.api.StopReceivingUpdates()

	a.logger.Info("Bot is polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			a.handleUpdate(ctx, update, d)
		}
	}
}

func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update, d Dispatcher) {
	if cq := update.CallbackQuery; cq != nil {
		// stops the client side spinner; the real answer follows as a message
		if _, err := a.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			a.logger.Warn("Callback answer failed", "err", err)
		}
	}

	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}
	d.Dispatch(ctx, ev)
}

// Send delivers replies in order to the chat ev came from.
func (a *Adapter) Send(ctx context.Context, ev conversation.Event, replies []presenter.Reply) error {
	for _, r := range replies {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if len(r.Media) > 0 {
			err = a.sendMedia(ev.ChatID, r.Media)
		} else {
			err = a.sendText(ev, r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) sendText(ev conversation.Event, r presenter.Reply) error {
	if r.Edit && ev.MessageID != 0 {
		_, err := a.api.Send(editConfig(ev.ChatID, ev.MessageID, r))
		if err == nil {
			return nil
		}
		// old or unchanged messages cannot be edited; send a fresh one instead
		a.logger.Debug("Message edit failed, sending new message", "chat_id", ev.ChatID, "err", err)
	}
	if _, err := a.api.Send(messageConfig(ev.ChatID, r)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (a *Adapter) sendMedia(chatID int64, photos []presenter.Photo) error {
	for start := 0; start < len(photos); start += maxAlbumSize {
		chunk := photos[start:min(start+maxAlbumSize, len(photos))]
		if len(chunk) == 1 {
			cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(chunk[0].URL))
			cfg.Caption = chunk[0].Caption
			if _, err := a.api.Send(cfg); err != nil {
				return fmt.Errorf("send photo: %w", err)
			}
			continue
		}
		if _, err := a.api.SendMediaGroup(albumConfig(chatID, chunk)); err != nil {
			return fmt.Errorf("send media group: %w", err)
		}
	}
	return nil
}

// Download streams a Telegram file into dst. Timeouts map to
// conversation.ErrDownloadTimeout so the caller may retry.
func (a *Adapter) Download(ctx context.Context, fileID string, dst io.Writer) error {
	url, err := a.api.GetFileDirectURL(fileID)
	if err != nil {
		return classifyDownloadError(fmt.Errorf("resolve file: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, a.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return classifyDownloadError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", conversation.ErrDownloadTimeout, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("file download failed: status %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return classifyDownloadError(err)
	}
	return nil
}

func classifyDownloadError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", conversation.ErrDownloadTimeout, err)
	}
	return err
}

func messageConfig(chatID int64, r presenter.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(r.Keyboard) > 0 {
		msg.ReplyMarkup = keyboard(r.Keyboard)
	}
	return msg
}

func editConfig(chatID int64, messageID int, r presenter.Reply) tgbotapi.EditMessageTextConfig {
	var edit tgbotapi.EditMessageTextConfig
	if len(r.Keyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, keyboard(r.Keyboard))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
	}
	if r.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	return edit
}

func albumConfig(chatID int64, photos []presenter.Photo) tgbotapi.MediaGroupConfig {
	media := make([]interface{}, 0, len(photos))
	for _, p := range photos {
		item := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(p.URL))
		item.Caption = p.Caption
		media = append(media, item)
	}
	return tgbotapi.NewMediaGroup(chatID, media)
}

func keyboard(rows [][]presenter.Button) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markup = append(markup, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}
