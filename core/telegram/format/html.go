// Package format renders small HTML fragments for Telegram's HTML parse mode and for email bodies.
package format

import (
	"html"
	"strings"
)

// Escape makes s safe to embed in HTML text.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Field renders "label: value" with a bold label.
func Field(label, value string) string {
	return Bold(label+":") + " " + Escape(value)
}

// Document joins already rendered lines into a minimal HTML email body.
func Document(lines []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><body>\n")
	for i, l := range lines {
		if i > 0 {
			b.WriteString("<br>\n")
		}
		b.WriteString(l)
	}
	b.WriteString("\n</body></html>\n")
	return b.String()
}
