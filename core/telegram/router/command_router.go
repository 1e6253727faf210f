package router

import (
	"log/slog"
	"sort"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/logger"
	tg "github.com/m3rciful/heatbot/core/telegram"
	"github.com/m3rciful/heatbot/core/telegram/commands"
	"github.com/m3rciful/heatbot/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	IsOperator       func(userID int64) bool
	OnOperatorReject tele.HandlerFunc
}

func (o CommandRouteOptions) wrap(name string, def commands.Command) tele.HandlerFunc {
	h := def.Handler
	if def.OperatorOnly {
		h = middleware.OperatorOnlyMiddleware(middleware.OperatorOptions{
			IsOperator: o.IsOperator,
			OnReject:   o.OnOperatorReject,
		})(h)
	}
	handlerName := "cmd." + normalizeHandlerName(name)
	return func(c tele.Context) error {
		return handleWithSummary(c, handlerName, time.Now(), func() error { return h(c) })
	}
}

// CommandRoutes builds one route per command name and alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		def := reg.Commands()[name]
		h := opts.wrap(name, def)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
