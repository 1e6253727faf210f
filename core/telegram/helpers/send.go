package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/logger"
	"github.com/m3rciful/heatbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender. With nil, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	var key int64
	if chat := c.Chat(); chat != nil {
		key = chat.ID
	}
	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, key, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func options(mode tele.ParseMode, markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{DisableWebPagePreview: true, ParseMode: mode}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText queues a plain text message to the current chat.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeDefault, markup)
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditText replaces the text of the message carrying the pressed button and drops its keyboard
// unless a new one is given. It falls back to a new message when there is nothing to edit.
func EditText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeDefault, markup)
	return sendAsync(c, "edit.text", "editMessageText", func() error {
		return c.EditOrSend(text, opts)
	})
}

// SendHTML is SendText with HTML parse mode. The caller escapes user input.
func SendHTML(c tele.Context, html string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeHTML, markup)
	return sendAsync(c, "send.html", "sendMessage", func() error {
		return c.Send(html, opts)
	})
}

// EditHTML is EditText with HTML parse mode.
func EditHTML(c tele.Context, html string, markup ...*tele.ReplyMarkup) error {
	opts := options(tele.ModeHTML, markup)
	return sendAsync(c, "edit.html", "editMessageText", func() error {
		return c.EditOrSend(html, opts)
	})
}
