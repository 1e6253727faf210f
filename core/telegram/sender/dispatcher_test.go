package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherKeepsOrderPerKey(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 128})
	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, d.Enqueue(context.Background(), 42, "send.text", "sendMessage", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	d.Close()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.text", "", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()
	assert.EqualValues(t, 3, calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherGivesUpOnPermanentErrors(t *testing.T) {
	var failed []string
	d := NewDispatcher(Options{
		Workers:      1,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		OnFailure:    func(action string, _ error) { failed = append(failed, action) },
	})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.photo", "", func() error {
		calls.Add(1)
		return &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	}))
	d.Close()
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, d.ErrorCount())
	assert.Equal(t, []string{"send.photo"}, failed)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	d.Close()
}

func TestRedactHidesToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:ABC-def_1/sendMessage": timeout`)
	assert.NotContains(t, redact(err), "ABC-def_1")
	assert.Contains(t, redact(err), "bot<redacted>")
}
