package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/heatbot/core/logger"
)

// Translator renders catalog keys.
type Translator interface {
	T(lang, key string, kv ...string) string
}

// Funnel records step hits and renders them as a text chart.
type Funnel struct {
	repo  Repository
	order []string
}

// NewFunnel builds a funnel over steps listed in flow order.
func NewFunnel(repo Repository, order []string) *Funnel {
	return &Funnel{repo: repo, order: order}
}

// Reach records that userID entered step. Failures are logged, never returned,
// so statistics cannot break the conversation.
func (f *Funnel) Reach(ctx context.Context, userID int64, step string) {
	if step == "" || userID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := f.repo.Hit(ctx, step, userID); err != nil {
		logger.Warn(ctx, "stats", "funnel.hit_failed",
			slog.String("step", step),
			slog.String("err", err.Error()),
		)
	}
}

// Chart renders the funnel in lang. Step labels come from "step.<name>" keys.
func (f *Funnel) Chart(ctx context.Context, tr Translator, lang string) (string, error) {
	counts, err := f.repo.Counts(ctx)
	if err != nil {
		return "", err
	}
	total := 0
	for _, s := range f.order {
		total += counts[s]
	}
	if total == 0 {
		return tr.T(lang, "stats_empty"), nil
	}

	base := counts[f.order[0]]
	if base == 0 {
		for _, s := range f.order {
			base = max(base, counts[s])
		}
	}

	var b strings.Builder
	b.WriteString(tr.T(lang, "stats_header"))
	b.WriteString("\n")
	prev := 0
	for i, s := range f.order {
		c := counts[s]
		fromPrev := 100
		if i > 0 {
			fromPrev = percent(c, prev)
		}
		fmt.Fprintf(&b, "%s: %d | %3d%% | %3d%% %s\n", tr.T(lang, "step."+s), c, percent(c, base), fromPrev, bar(c, base))
		prev = c
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func percent(a, b int) int {
	if b <= 0 {
		return 0
	}
	return 100 * a / b
}

const barWidth = 20

func bar(val, top int) string {
	if top <= 0 {
		return ""
	}
	filled := min(max(barWidth*val/top, 0), barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}
