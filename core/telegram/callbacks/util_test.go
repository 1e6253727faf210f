package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"encoded", &tele.Callback{Data: "\fcountry|serbia"}, "country", "serbia"},
		{"no payload", &tele.Callback{Data: "\fconfirm"}, "confirm", ""},
		{"payload with separator", &tele.Callback{Data: "\fopt|a|b"}, "opt", "a|b"},
		{"unique set", &tele.Callback{Unique: "lang", Data: "en"}, "lang", "en"},
		{"plain", &tele.Callback{Data: "service|heating"}, "service", "heating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, p := Parse(tt.cb)
			assert.Equal(t, tt.key, k)
			assert.Equal(t, tt.payload, p)
		})
	}
}
