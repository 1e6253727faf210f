// Package callbacks decodes inline button data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits telebot's "\f<unique>|<payload>" encoding.
func ParseData(data string) (unique, payload string) {
	data = strings.TrimPrefix(data, "\f")
	unique, payload, _ = strings.Cut(data, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the button unique and payload. A generic OnCallback
// handler leaves Unique empty, so the raw data is decoded instead.
func Parse(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}

// Key returns the unique part of the pressed button.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// Payload returns the payload part of the pressed button.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return p
}
