// Package notify delivers confirmed inquiries by email and by Telegram direct message.
package notify

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"
)

// Mail is one outgoing email. Attachments are local file paths.
type Mail struct {
	To          []string
	BCC         []string
	Subject     string
	Text        string
	HTML        string
	Attachments []string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

var errNoRecipients = errors.New("notify: mail has no recipients")

func (m Mail) recipients() []string {
	return append(append([]string(nil), m.To...), m.BCC...)
}

// buildMessage renders m as a multipart message with a plain text body, an HTML alternative and attachments.
func buildMessage(from string, m Mail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To...)
	if len(m.BCC) > 0 {
		msg.SetHeader("Bcc", m.BCC...)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}
	for _, path := range m.Attachments {
		msg.Attach(path)
	}
	return msg
}
