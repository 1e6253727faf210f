package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/heatbot/core/logger"
	"github.com/m3rciful/heatbot/core/telegram/format"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/metrics"
	"github.com/m3rciful/heatbot/internal/routing"
)

// Options configure a Notifier.
type Options struct {
	Mailer     Mailer
	Forwarder  Forwarder
	Downloader Downloader
	Routes     *routing.Table
	Catalog    inquiry.Translator

	// Operators are Telegram user ids that receive every inquiry.
	Operators []int64
	// OperatorLanguage is used for operator notices.
	OperatorLanguage string
	BCC              string
	SubjectPrefix    string
	TempDir          string
	// Timeout bounds each delivery path.
	Timeout time.Duration
}

// Result reports each path. A nil error means that path succeeded.
type Result struct {
	EmailErr    error
	TelegramErr error
	// AttachmentErr is set when the sketch could not be attached; the email went out without it.
	AttachmentErr error
}

// Notifier delivers inquiries over email and Telegram.
type Notifier struct {
	opts Options
}

// New validates opts and returns a Notifier.
func New(opts Options) (*Notifier, error) {
	if opts.Mailer == nil || opts.Routes == nil || opts.Catalog == nil {
		return nil, errors.New("notify: mailer, routes and catalog are required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Notifier{opts: opts}, nil
}

// Deliver runs the email and Telegram paths concurrently. One failing never stops the other.
// If only the email path failed, operators also get a short notice in Telegram.
func (n *Notifier) Deliver(ctx context.Context, q *inquiry.Inquiry) (Result, error) {
	entry, err := n.opts.Routes.Resolve(q.Country, q.Service)
	if err != nil {
		return Result{}, err
	}
	msg := inquiry.Compose(q, entry, n.opts.Catalog)
	ctx = logger.WithLogger(ctx, logger.Component("notify"))

	var (
		res Result
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		res.AttachmentErr, res.EmailErr = n.email(ctx, q, entry, msg)
		metrics.ObserveDelivery(metrics.PathEmail, res.EmailErr, logger.Took(start))
		n.logPath(ctx, q, metrics.PathEmail, start, res.EmailErr, slog.String("to", entry.Contact.Email))
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		res.TelegramErr = n.forward(ctx, q, msg)
		metrics.ObserveDelivery(metrics.PathTelegram, res.TelegramErr, logger.Took(start))
		n.logPath(ctx, q, metrics.PathTelegram, start, res.TelegramErr, slog.Int("operators", len(n.opts.Operators)))
	}()
	wg.Wait()

	if res.EmailErr != nil && res.TelegramErr == nil && len(n.opts.Operators) > 0 {
		n.noticeEmailFailure(ctx, q)
	}
	return res, nil
}

func (n *Notifier) logPath(ctx context.Context, q *inquiry.Inquiry, path string, start time.Time, err error, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("inquiry_id", q.ID.String()),
		slog.String("path", path),
		slog.Duration("duration", logger.Took(start)),
	}, extra...)
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 512)))
		logger.LogEvent(ctx, nil, slog.LevelError, "delivery.failed", attrs...)
		return
	}
	logger.LogEvent(ctx, nil, slog.LevelInfo, "delivery.done", attrs...)
}

func (n *Notifier) email(ctx context.Context, q *inquiry.Inquiry, entry routing.Entry, msg inquiry.Message) (attachErr, sendErr error) {
	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	mail := Mail{
		To:      []string{entry.Contact.Email},
		Subject: n.subject(q, msg),
		Text:    msg.Text(),
		HTML:    msg.EmailHTML(),
	}
	if n.opts.BCC != "" {
		mail.BCC = []string{n.opts.BCC}
	}

	if q.HasSketch() {
		path, cleanup, err := n.download(ctx, q)
		defer cleanup()
		if err != nil {
			attachErr = err
			logger.LogEvent(ctx, nil, slog.LevelError, "sketch.download_failed",
				slog.String("inquiry_id", q.ID.String()),
				slog.String("err", logger.SanitizeLimit(err.Error(), 512)),
			)
		} else {
			mail.Attachments = []string{path}
		}
	}
	return attachErr, n.opts.Mailer.Send(ctx, mail)
}

func (n *Notifier) subject(q *inquiry.Inquiry, msg inquiry.Message) string {
	parts := []string{msg.Subject}
	if n.opts.SubjectPrefix != "" {
		parts = append([]string{n.opts.SubjectPrefix}, parts...)
	}
	if ref := q.Ref(); ref != "" {
		parts = append(parts, "#"+ref)
	}
	return strings.Join(parts, " ")
}

// download fetches the sketch into a temp file. cleanup removes it and is always safe to call.
func (n *Notifier) download(ctx context.Context, q *inquiry.Inquiry) (string, func(), error) {
	noop := func() {}
	if n.opts.Downloader == nil {
		return "", noop, errors.New("no downloader configured")
	}
	f, err := os.CreateTemp(n.opts.TempDir, "sketch-"+q.Ref()+"-*"+q.Sketch.Ext())
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn(ctx, "notify", "sketch.cleanup_failed",
				slog.String("path", path),
				slog.String("err", err.Error()),
			)
		}
	}
	if err := n.opts.Downloader.Download(ctx, q.Sketch.FileID, path); err != nil {
		return "", cleanup, err
	}
	return path, cleanup, nil
}

func (n *Notifier) forward(ctx context.Context, q *inquiry.Inquiry, msg inquiry.Message) error {
	if len(n.opts.Operators) == 0 {
		return nil
	}
	if n.opts.Forwarder == nil {
		return errors.New("no forwarder configured")
	}
	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	html := msg.TelegramHTML()
	var errs []error
	for _, op := range n.opts.Operators {
		if err := n.opts.Forwarder.SendHTML(ctx, op, html); err != nil {
			errs = append(errs, err)
		}
		// The sketch goes out on its own even if the text did not.
		if q.HasSketch() {
			if err := n.opts.Forwarder.SendSketch(ctx, op, *q.Sketch, "#"+q.Ref()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) noticeEmailFailure(ctx context.Context, q *inquiry.Inquiry) {
	text := format.Escape(n.opts.Catalog.T(n.opts.OperatorLanguage, "email_failed_notice", "id", q.Ref()))
	for _, op := range n.opts.Operators {
		if err := n.opts.Forwarder.SendHTML(ctx, op, text); err != nil {
			logger.Warn(ctx, "notify", "notice.failed",
				slog.Int64("operator", op),
				slog.String("err", err.Error()),
			)
		}
	}
}
