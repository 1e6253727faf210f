package router

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/heatbot/core/telegram"
	"github.com/m3rciful/heatbot/core/telegram/ui"
)

// MessageOptions wires free-form message updates.
type MessageOptions struct {
	// OnText receives text that is not a registered command.
	OnText tele.HandlerFunc
	// OnPhoto receives photos.
	OnPhoto tele.HandlerFunc
	// OnDocument receives files. Without it files count as unsupported media.
	OnDocument tele.HandlerFunc
	// Commands resolves slash commands telebot did not match, such as "/start@botname".
	Commands CommandRouteOptions
	// Fallbacks answer unknown commands and unsupported media.
	Fallbacks ui.FallbackProvider
}

// MessageRoutes builds the text, photo, document and unsupported-media routes.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := strings.TrimSpace(c.Text())

		if strings.HasPrefix(text, "/") {
			if reg != nil {
				head, _, _ := strings.Cut(text, " ")
				if key, cmd, ok := reg.LookupCommand(head); ok && cmd.Handler != nil {
					return opts.Commands.wrap(key, cmd)(c)
				}
			}
			if opts.Fallbacks != nil {
				return handleWithSummary(c, "unknown_command", start, func() error {
					return opts.Fallbacks.UnknownCommand()(c)
				})
			}
		}

		if opts.OnText != nil {
			return handleWithSummary(c, "message.text", start, func() error {
				return opts.OnText(c)
			})
		}
		logHandlerSummary(c, "message.text", start, "skip", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.OnPhoto != nil {
			return handleWithSummary(c, "message.photo", start, func() error {
				return opts.OnPhoto(c)
			})
		}
		logHandlerSummary(c, "message.photo", start, "skip", nil)
		return nil
	}

	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: textHandler},
		{Endpoint: tele.OnPhoto, Handler: photoHandler},
	}
	unsupported := []string{tele.OnVideo, tele.OnVoice, tele.OnAudio, tele.OnSticker, tele.OnLocation, tele.OnContact}
	if opts.OnDocument != nil {
		routes = append(routes, tg.Route{Endpoint: tele.OnDocument, Handler: func(c tele.Context) error {
			return handleWithSummary(c, "message.document", time.Now(), func() error {
				return opts.OnDocument(c)
			})
		}})
	} else {
		unsupported = append([]string{tele.OnDocument}, unsupported...)
	}

	if opts.Fallbacks != nil {
		media := func(c tele.Context) error {
			return handleWithSummary(c, "message.unsupported", time.Now(), func() error {
				return opts.Fallbacks.UnsupportedMedia()(c)
			})
		}
		for _, ep := range unsupported {
			routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
		}
	}
	return routes
}
