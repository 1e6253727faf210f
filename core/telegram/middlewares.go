package telegram

import (
	"github.com/m3rciful/heatbot/core/telegram/middleware"
)

// DefaultMiddlewares is the global chain: panic recovery, receipt logging and message counters.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
