// Package metrics defines the bot's Prometheus instruments.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/heatbot/core/logger"
)

// Delivery paths.
const (
	PathEmail    = "email"
	PathTelegram = "telegram"
)

var (
	InquiriesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatbot_inquiries_submitted_total",
			Help: "Inquiries confirmed by users",
		},
		[]string{"country", "service"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatbot_deliveries_total",
			Help: "Inquiry deliveries by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heatbot_delivery_duration_seconds",
			Help:    "Duration of one delivery path",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"path"},
	)

	Reprompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatbot_form_reprompts_total",
			Help: "Rejected inputs that made a form step ask again",
		},
		[]string{"step"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heatbot_sessions_active",
			Help: "Conversation sessions held in memory",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatbot_sessions_evicted_total",
			Help: "Sessions dropped after the idle timeout",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatbot_telegram_send_failures_total",
			Help: "Outgoing Telegram calls that failed after retries",
		},
		[]string{"action"},
	)
)

// ObserveDelivery records one delivery attempt.
func ObserveDelivery(path string, err error, took time.Duration) {
	Deliveries.WithLabelValues(path, logger.Outcome(err)).Inc()
	DeliveryDuration.WithLabelValues(path).Observe(took.Seconds())
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info(ctx, "metrics", "listen", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
