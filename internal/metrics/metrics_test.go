package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDelivery(t *testing.T) {
	okBefore := testutil.ToFloat64(Deliveries.WithLabelValues(PathEmail, "ok"))
	failBefore := testutil.ToFloat64(Deliveries.WithLabelValues(PathEmail, "fail"))

	ObserveDelivery(PathEmail, nil, 120*time.Millisecond)
	ObserveDelivery(PathEmail, errors.New("smtp down"), time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(Deliveries.WithLabelValues(PathEmail, "ok")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(Deliveries.WithLabelValues(PathEmail, "fail")))
}

func TestServeDisabledWithoutAddress(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), ""))
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
