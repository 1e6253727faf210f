// Package sender runs outbound Bot API calls on a worker pool with retries.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/logger"
	"github.com/m3rciful/heatbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the job was not accepted because the worker queue is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options tune the dispatcher. Zero values get defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job including retries.
	MaxDuration time.Duration
	// OnFailure observes jobs that failed after all attempts.
	OnFailure func(action string, err error)
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes sends asynchronously. Jobs sharing a key go to the same
// worker, so messages to one chat keep their order.
type Dispatcher struct {
	opts   Options
	queues []chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, queues: make([]chan job, opts.Workers)}
	per := max(opts.QueueSize/opts.Workers, 1)
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, per)
		go d.worker(d.queues[i])
	}
	return d
}

// Enqueue schedules run on the worker owning key. run must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	if key < 0 {
		key = -key
	}
	q := d.queues[key%int64(len(d.queues))]
	select {
	case q <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns how many jobs failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued ones are processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(q <-chan job) {
	defer d.wg.Done()
	for j := range q {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadline, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			if logger.ShouldSampleDebug() {
				logger.Debug(ctx, "tg.sender", "send.success", append(attrs(j),
					slog.Int("attempts", attempt),
					slog.Duration("duration", logger.Took(start)),
				)...)
			}
			return
		}
		if attempt == attempts || !retryable(err) {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if wait := floodWait(err); wait > delay {
			delay = wait
		}
		timer := time.NewTimer(delay)
		select {
		case <-deadline.Done():
			timer.Stop()
			err = errors.Join(err, deadline.Err())
			break attemptLoop
		case <-timer.C:
		}
	}

	d.errs.Add(1)
	if d.opts.OnFailure != nil {
		d.opts.OnFailure(j.action, err)
	}
	logger.Error(ctx, "tg.sender", "send.fail", append(attrs(j),
		slog.String("err", redact(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	)...)
}

func attrs(j job) []slog.Attr {
	a := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		a = append(a, slog.String("endpoint", j.endpoint))
	}
	return a
}

func retryable(err error) bool {
	return netutil.ShouldRetry(err) || httpStatus(err) == http.StatusTooManyRequests || httpStatus(err) >= 500
}

func floodWait(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

func httpStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	return 0
}

// redact keeps bot tokens embedded in request URLs out of the logs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
