package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/heatbot/core/config"
	"github.com/m3rciful/heatbot/core/logger"
	tg "github.com/m3rciful/heatbot/core/telegram"
	"github.com/m3rciful/heatbot/core/telegram/router"
	tgsender "github.com/m3rciful/heatbot/core/telegram/sender"
	"github.com/m3rciful/heatbot/internal/conversation"
	"github.com/m3rciful/heatbot/internal/i18n"
	"github.com/m3rciful/heatbot/internal/metrics"
	"github.com/m3rciful/heatbot/internal/notify"
	"github.com/m3rciful/heatbot/internal/routing"
	"github.com/m3rciful/heatbot/internal/stats"
)

// App is the assembled bot ready to be handed to the Telegram runner.
type App struct {
	cfg      *coreconfig.Config
	tb       *tele.Bot
	bot      *Bot
	registry *tg.Registry
	db       *sqlx.DB
}

// NewApp loads catalogs and the routing table, builds the mailer and the Telegram
// client and wires the conversation. db may be nil; statistics then stay in memory.
func NewApp(ctx context.Context, cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	cat, err := i18n.Load(cfg.Catalog.DefaultLanguage, cfg.Catalog.Dir)
	if err != nil {
		return nil, err
	}
	if err := cat.Check(); err != nil {
		return nil, err
	}
	routes := routing.Default()
	if err := routes.Validate(); err != nil {
		return nil, fmt.Errorf("routing table: %w", err)
	}

	mailer, err := newMailer(ctx, cfg.Email)
	if err != nil {
		return nil, err
	}
	tb, err := tg.NewBot(cfg)
	if err != nil {
		return nil, err
	}
	telegram := notify.NewTelegram(tb)

	notifier, err := notify.New(notify.Options{
		Mailer:           mailer,
		Forwarder:        telegram,
		Downloader:       telegram,
		Routes:           routes,
		Catalog:          cat,
		Operators:        cfg.Telegram.OperatorIDs,
		OperatorLanguage: cat.Default(),
		BCC:              cfg.Email.BCC,
		SubjectPrefix:    cfg.Email.SubjectPrefix,
		TempDir:          cfg.Email.TempDir,
	})
	if err != nil {
		return nil, err
	}

	var repo stats.Repository = stats.NewMemoryRepo()
	if db != nil {
		repo = stats.NewPostgresRepo(db)
	}

	b, err := New(Options{
		Engine:     conversation.NewEngine(routes, cat),
		Catalog:    cat,
		Deliverer:  notifier,
		Funnel:     stats.NewFunnel(repo, FunnelOrder()),
		SessionTTL: cfg.Session.TTL,
	})
	if err != nil {
		return nil, err
	}
	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		return nil, err
	}

	logger.Component("app").Info("app wired",
		slog.String("event", "wire"),
		slog.String("email", cfg.Email.Provider),
		slog.Int("operators", len(cfg.Telegram.OperatorIDs)),
		slog.Bool("db", db != nil),
		slog.Any("languages", cat.Languages()),
	)
	return &App{cfg: cfg, tb: tb, bot: b, registry: reg, db: db}, nil
}

func newMailer(ctx context.Context, cfg coreconfig.EmailConfig) (notify.Mailer, error) {
	switch cfg.Provider {
	case coreconfig.EmailProviderSES:
		return notify.NewSESMailer(ctx, cfg.SES.Region, cfg.From)
	default:
		return notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.From), nil
	}
}

// TelegramRunOptions describes routes, middlewares and lifecycle hooks for the runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	cmdOpts := router.CommandRouteOptions{
		IsOperator:       a.cfg.IsOperator,
		OnOperatorReject: a.bot.OperatorRejected,
	}
	routes := router.CommandRoutes(a.registry, cmdOpts)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(a.registry, router.MessageOptions{
		OnText:     a.bot.OnText,
		OnPhoto:    a.bot.OnPhoto,
		OnDocument: a.bot.OnDocument,
		Commands:   cmdOpts,
		Fallbacks:  a.bot,
	})...)

	return tg.RunOptions{
		Config:   a.cfg,
		Bot:      a.tb,
		Registry: a.registry,
		DispatcherOptions: tgsender.Options{
			QueueSize:  a.cfg.Sender.QueueSize,
			Workers:    a.cfg.Sender.Workers,
			MaxRetries: a.cfg.Sender.MaxRetries,
			OnFailure: func(action string, _ error) {
				metrics.SendFailures.WithLabelValues(action).Inc()
			},
		},
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	go a.bot.Sweep(ctx, a.cfg.Session.SweepInterval)
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Listen); err != nil {
			logger.Error(ctx, "metrics", "serve.failed", slog.String("err", err.Error()))
		}
	}()
	return nil
}

func (a *App) onStop(_ context.Context, _ tg.Runtime) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
