package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

const implicitTLSPort = 465

// SMTPMailer sends through an SMTP relay with STARTTLS or implicit TLS picked by port.
type SMTPMailer struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	dialTimeout time.Duration
}

// NewSMTPMailer builds a mailer for host:port authenticated as username.
// An empty username skips authentication.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		dialTimeout: 10 * time.Second,
	}
}

// Send delivers m over one connection bound to ctx. It returns only once the exchange is over,
// so attachments can be removed as soon as it returns.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if len(m.recipients()) == 0 {
		return errNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		return s.exchange(ctx, from, to, msg)
	})
	if err := gomail.Send(send, buildMessage(s.from, m)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w (%v)", ctxErr, err)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPMailer) exchange(ctx context.Context, from string, to []string, msg io.WriterTo) error {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return err
	}
	defer raw.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	// Cancellation fails any pending read or write.
	stop := context.AfterFunc(ctx, func() { _ = raw.SetDeadline(time.Now()) })
	defer stop()

	tlsConfig := &tls.Config{ServerName: s.host}
	conn := raw
	if s.port == implicitTLSPort {
		conn = tls.Client(raw, tlsConfig)
	}
	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if s.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	// The relay accepted the message; a failed QUIT does not undo that.
	_ = c.Quit()
	return nil
}
