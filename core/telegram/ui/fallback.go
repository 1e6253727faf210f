package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when an update cannot be mapped
// to a command, a callback or a step of the conversation.
type FallbackProvider interface {
	UnknownCommand() tele.HandlerFunc
	UnsupportedMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
