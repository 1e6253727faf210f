package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/internal/inquiry"
)

// Forwarder sends direct messages to operator accounts.
type Forwarder interface {
	SendHTML(ctx context.Context, chatID int64, html string) error
	SendSketch(ctx context.Context, chatID int64, sketch inquiry.Sketch, caption string) error
}

// Downloader fetches a file from Telegram's media store into dst.
type Downloader interface {
	Download(ctx context.Context, fileID, dst string) error
}

// TelegramBot is the part of *tele.Bot used for forwarding and downloads.
type TelegramBot interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	Download(file *tele.File, localFilename string) error
}

// Telegram implements Forwarder and Downloader on a bot. Calls are not cancellable;
// the bot's HTTP client timeout bounds them.
type Telegram struct {
	bot TelegramBot
}

func NewTelegram(bot TelegramBot) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) SendHTML(_ context.Context, chatID int64, html string) error {
	_, err := t.bot.Send(tele.ChatID(chatID), html, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendSketch resends the sketch the way it arrived: as a photo or as a file.
func (t *Telegram) SendSketch(_ context.Context, chatID int64, sketch inquiry.Sketch, caption string) error {
	file := tele.File{FileID: sketch.FileID}
	var what tele.Sendable = &tele.Photo{File: file, Caption: caption}
	if sketch.IsDocument() {
		what = &tele.Document{File: file, Caption: caption, FileName: sketch.FileName, MIME: sketch.MIME}
	}
	if _, err := t.bot.Send(tele.ChatID(chatID), what); err != nil {
		return fmt.Errorf("send sketch to %d: %w", chatID, err)
	}
	return nil
}

func (t *Telegram) Download(_ context.Context, fileID, dst string) error {
	if err := t.bot.Download(&tele.File{FileID: fileID}, dst); err != nil {
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	return nil
}
