// Package bot connects the inquiry conversation to Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/logger"
	tg "github.com/m3rciful/heatbot/core/telegram"
	"github.com/m3rciful/heatbot/core/telegram/commands"
	"github.com/m3rciful/heatbot/core/telegram/state"
	"github.com/m3rciful/heatbot/internal/conversation"
	"github.com/m3rciful/heatbot/internal/i18n"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/metrics"
	"github.com/m3rciful/heatbot/internal/notify"
	"github.com/m3rciful/heatbot/internal/stats"
)

// Deliverer sends a confirmed inquiry to its contractor and the operators.
type Deliverer interface {
	Deliver(ctx context.Context, q *inquiry.Inquiry) (notify.Result, error)
}

// Funnel records how far users get and renders the result.
type Funnel interface {
	Reach(ctx context.Context, userID int64, step string)
	Chart(ctx context.Context, tr stats.Translator, lang string) (string, error)
}

// Options wire a Bot.
type Options struct {
	Engine    *conversation.Engine
	Catalog   *i18n.Catalog
	Deliverer Deliverer
	Funnel    Funnel
	// SessionTTL drops conversations idle for longer. Zero keeps them forever.
	SessionTTL time.Duration
}

// Bot owns the per-user sessions and the handlers registered with Telegram.
type Bot struct {
	engine    *conversation.Engine
	cat       *i18n.Catalog
	deliverer Deliverer
	funnel    Funnel
	sessions  *state.Store[conversation.Session]
}

// New validates opts and builds a Bot.
func New(opts Options) (*Bot, error) {
	if opts.Engine == nil || opts.Catalog == nil || opts.Deliverer == nil {
		return nil, errors.New("bot: engine, catalog and deliverer are required")
	}
	if opts.Funnel == nil {
		opts.Funnel = stats.NewFunnel(stats.NewMemoryRepo(), FunnelOrder())
	}
	return &Bot{
		engine:    opts.Engine,
		cat:       opts.Catalog,
		deliverer: opts.Deliverer,
		funnel:    opts.Funnel,
		sessions: state.NewStore(state.Options[conversation.Session]{
			TTL: opts.SessionTTL,
			OnEvict: func(n int) {
				metrics.SessionsEvicted.Add(float64(n))
			},
		}),
	}, nil
}

// FunnelOrder lists the statistics steps in form order.
func FunnelOrder() []string {
	order := make([]string, len(conversation.FunnelSteps))
	for i, s := range conversation.FunnelSteps {
		order[i] = s.String()
	}
	return order
}

// Register adds the bot's commands and button handlers to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	def := b.cat.Default()
	cmds := map[string]commands.Command{
		"/start":  {Handler: b.onStart, Description: b.cat.T(def, "cmd_start")},
		"/cancel": {Handler: b.onCancel, Description: b.cat.T(def, "cmd_cancel")},
		"/stats":  {Handler: b.onStats, Description: b.cat.T(def, "cmd_stats"), OperatorOnly: true},
	}
	var errs []error
	for name, cmd := range cmds {
		errs = append(errs, reg.RegisterCommand(name, cmd))
	}
	for _, kind := range conversation.ActionKinds {
		errs = append(errs, reg.RegisterCallback(kind.Unique(), b.onAction))
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	return errors.Join(errs...)
}

// Sweep runs the idle session sweeper until ctx is done.
func (b *Bot) Sweep(ctx context.Context, interval time.Duration) {
	b.sessions.Run(ctx, interval)
}

// dispatch runs one event through the user's session and renders the reply.
func (b *Bot) dispatch(c tele.Context, ev conversation.Event) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	ev.User = submitter(u)
	ev.LanguageCode = u.LanguageCode
	ctx := logger.WithLogger(tgContext(c), logger.Component("form"))

	var (
		reply     conversation.Reply
		handleErr error
	)
	_ = b.sessions.Do(u.ID, func(s *conversation.Session) error {
		reply, handleErr = b.engine.Handle(s, ev)
		return nil
	})
	metrics.SessionsActive.Set(float64(b.sessions.Len()))

	if handleErr != nil {
		if !errors.Is(handleErr, conversation.ErrStaleAction) && !errors.Is(handleErr, conversation.ErrInvalidChoice) {
			return fmt.Errorf("handle event: %w", handleErr)
		}
		logger.Info(ctx, "form", "action.rejected",
			slog.String("step", reply.Step.String()),
			slog.String("reason", handleErr.Error()),
		)
	}

	b.record(ctx, u.ID, reply)
	if c.Callback() != nil {
		if err := respond(c, reply.Answer); err != nil {
			logger.Warn(ctx, "form", "callback.respond_failed", slog.String("err", err.Error()))
		}
	}
	renderErr := render(c, reply.Messages)
	if reply.Submit == nil {
		return renderErr
	}
	// The session is already reset, so the inquiry goes out even if the UI update failed.
	if renderErr != nil {
		logger.Warn(ctx, "form", "render.failed",
			slog.String("step", reply.Step.String()),
			slog.String("err", renderErr.Error()),
		)
	}
	return b.submit(ctx, c, reply.Submit)
}

func (b *Bot) record(ctx context.Context, userID int64, reply conversation.Reply) {
	for _, step := range reply.Reached {
		b.funnel.Reach(ctx, userID, step.String())
	}
	if reply.Reprompted {
		metrics.Reprompts.WithLabelValues(reply.Step.String()).Inc()
	}
}

// submit delivers the confirmed inquiry and tells the user how it went.
// The user sees a failure only when the email did not go out.
func (b *Bot) submit(ctx context.Context, c tele.Context, q *inquiry.Inquiry) error {
	metrics.InquiriesSubmitted.WithLabelValues(string(q.Country), string(q.Service)).Inc()

	start := time.Now()
	res, err := b.deliverer.Deliver(ctx, q)
	if err == nil {
		err = res.EmailErr
	}
	logger.LogEvent(ctx, nil, levelFor(err), "inquiry.submitted",
		slog.String("status", logger.Status(err)),
		slog.String("inquiry_id", q.ID.String()),
		slog.String("country", string(q.Country)),
		slog.String("service", string(q.Service)),
		slog.Bool("sketch", q.HasSketch()),
		slog.Bool("telegram_ok", res.TelegramErr == nil),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		return sendPlain(c, b.cat.T(q.Language, "sent_fail"))
	}
	return sendPlain(c, b.cat.T(q.Language, "sent_ok", "id", q.Ref()))
}

// lang returns the user's chosen language without touching the session step.
func (b *Bot) lang(c tele.Context) string {
	u := c.Sender()
	if u == nil {
		return b.cat.Default()
	}
	lang := ""
	_ = b.sessions.Do(u.ID, func(s *conversation.Session) error {
		lang = s.Inquiry.Language
		return nil
	})
	if lang == "" || !b.cat.Has(lang) {
		return b.cat.Match(u.LanguageCode)
	}
	return lang
}

func submitter(u *tele.User) inquiry.Submitter {
	return inquiry.Submitter{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func levelFor(err error) slog.Level {
	if err != nil {
		return slog.LevelError
	}
	return slog.LevelInfo
}
