package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/imrishuroy/gp-notifier/internal/metrics"
	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

const (
	defaultPublishTimeout = 5 * time.Second
	defaultFanoutWorkers  = 8
)

// Sink receives every stored batch after the response is written.
type Sink interface {
	Name() string
	Publish(ctx context.Context, requestID string, batch []sightings.Sighting) error
}

// Fanout delivers stored batches to the sinks in the background.
// At most defaultFanoutWorkers batches are published at once; Wait drains
// outstanding deliveries during shutdown.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	slots   chan struct{}
	wg      sync.WaitGroup
}

// NewFanout returns a Fanout over sinks. A non-positive timeout uses the default.
func NewFanout(sinks []Sink, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Fanout {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Fanout{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		slots:   make(chan struct{}, defaultFanoutWorkers),
	}
}

// Dispatch schedules batch for every sink and returns immediately.
func (f *Fanout) Dispatch(requestID string, batch []sightings.Sighting) {
	if f == nil || len(f.sinks) == 0 {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.slots <- struct{}{}
		defer func() { <-f.slots }()
		f.publish(requestID, batch)
	}()
}

// Wait blocks until every dispatched batch is delivered or ctx is done.
func (f *Fanout) Wait(ctx context.Context) error {
	if f == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish sends one batch to every sink. Failures are logged and counted only.
func (f *Fanout) publish(requestID string, batch []sightings.Sighting) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, requestID, batch); err != nil {
			f.metrics.FanoutFailures.WithLabelValues(sink.Name()).Inc()
			f.logger.Error("fan-out failed", "sink", sink.Name(), "error", err, "request_id", requestID)
		}
	}
}
