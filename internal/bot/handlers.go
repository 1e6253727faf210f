package bot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/logger"
	"github.com/m3rciful/heatbot/core/telegram/callbacks"
	"github.com/m3rciful/heatbot/core/telegram/format"
	"github.com/m3rciful/heatbot/core/telegram/helpers"
	"github.com/m3rciful/heatbot/core/telegram/keyboard"
	"github.com/m3rciful/heatbot/internal/conversation"
	"github.com/m3rciful/heatbot/internal/inquiry"
)

func (b *Bot) onStart(c tele.Context) error {
	return b.dispatch(c, conversation.Event{Kind: conversation.EventStart})
}

func (b *Bot) onCancel(c tele.Context) error {
	return b.dispatch(c, conversation.Event{Kind: conversation.EventCancel})
}

// OnText feeds free text to the form.
func (b *Bot) OnText(c tele.Context) error {
	return b.dispatch(c, conversation.Event{Kind: conversation.EventText, Text: c.Text()})
}

// OnPhoto feeds a photo to the form. Telegram reports the largest size in Message.Photo.
func (b *Bot) OnPhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	sketch := &inquiry.Sketch{FileID: msg.Photo.FileID, UniqueID: msg.Photo.UniqueID}
	return b.dispatch(c, conversation.Event{Kind: conversation.EventPhoto, Photo: sketch})
}

// OnDocument takes an image sent as a file as the sketch. Other files are unsupported.
func (b *Bot) OnDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil || !inquiry.IsImageMIME(msg.Document.MIME) {
		return b.UnsupportedMedia()(c)
	}
	doc := msg.Document
	sketch := &inquiry.Sketch{
		FileID:   doc.FileID,
		UniqueID: doc.UniqueID,
		FileName: doc.FileName,
		MIME:     strings.ToLower(doc.MIME),
	}
	return b.dispatch(c, conversation.Event{Kind: conversation.EventPhoto, Photo: sketch})
}

func (b *Bot) onAction(c tele.Context) error {
	action, err := conversation.DecodeAction(callbacks.Key(c), callbacks.Payload(c))
	if err != nil {
		logger.Info(tgContext(c), "form", "action.undecodable",
			slog.String("cb_key", callbacks.Key(c)),
			slog.String("err", err.Error()),
		)
		return respond(c, b.cat.T(b.lang(c), "stale_action"))
	}
	return b.dispatch(c, conversation.Event{Kind: conversation.EventAction, Action: action})
}

func (b *Bot) onStats(c tele.Context) error {
	lang := b.lang(c)
	chart, err := b.funnel.Chart(tgContext(c), b.cat, lang)
	if err != nil {
		return err
	}
	html := format.Bold(b.cat.T(lang, "stats_header")) + "\n<pre>" + format.Escape(chart) + "</pre>"
	return helpers.SendHTML(c, html)
}

// UnknownCommand answers slash commands the bot does not know.
func (b *Bot) UnknownCommand() tele.HandlerFunc {
	return func(c tele.Context) error {
		return sendPlain(c, b.cat.T(b.lang(c), "unknown"))
	}
}

// UnsupportedMedia answers non-image files, voice and other media the form cannot take.
func (b *Bot) UnsupportedMedia() tele.HandlerFunc {
	return func(c tele.Context) error {
		return sendPlain(c, b.cat.T(b.lang(c), "unsupported_media"))
	}
}

// UnknownCallback answers buttons whose unique is not registered.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return respond(c, b.cat.T(b.lang(c), "stale_action"))
	}
}

// OperatorRejected answers non-operators who try an operator command as if it did not exist.
func (b *Bot) OperatorRejected(c tele.Context) error {
	return b.UnknownCommand()(c)
}

func render(c tele.Context, msgs []conversation.Message) error {
	for _, m := range msgs {
		var markup []*tele.ReplyMarkup
		if len(m.Buttons) > 0 {
			markup = append(markup, buttons(m.Buttons))
		}
		var err error
		switch {
		case m.Edit && m.HTML:
			err = helpers.EditHTML(c, m.Text, markup...)
		case m.Edit:
			err = helpers.EditText(c, m.Text, markup...)
		case m.HTML:
			err = helpers.SendHTML(c, m.Text, markup...)
		default:
			err = helpers.SendText(c, m.Text, markup...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func buttons(rows [][]conversation.Button) *tele.ReplyMarkup {
	out := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		out[i] = make([]keyboard.InlineBtn, len(row))
		for j, btn := range row {
			out[i][j] = keyboard.InlineBtn{Text: btn.Text, Unique: btn.Action.Kind.Unique(), Data: btn.Action.Value}
		}
	}
	return keyboard.InlineButtonsRows(out...)
}

func sendPlain(c tele.Context, text string) error {
	return helpers.SendText(c, text)
}

func respond(c tele.Context, alert string) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: alert, ShowAlert: alert != ""})
}

func tgContext(c tele.Context) context.Context {
	return helpers.BuildContext(c)
}
