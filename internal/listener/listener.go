package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imrishuroy/gp-notifier/internal/idempotency"
	"github.com/imrishuroy/gp-notifier/internal/metrics"
)

// Listener filters chat messages and forwards qualifying ones exactly once per
// successful delivery.
type Listener struct {
	channels  map[string]struct{}
	dedup     *idempotency.Store
	forwarder Forwarder
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option mutates listener configuration.
type Option func(*Listener)

// WithLogger injects a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics injects the process metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Listener) {
		if m != nil {
			l.metrics = m
		}
	}
}

// New returns a listener acting on the allowed channel ids.
func New(channelIDs []string, dedup *idempotency.Store, forwarder Forwarder, opts ...Option) (*Listener, error) {
	if len(channelIDs) == 0 {
		return nil, fmt.Errorf("new listener: empty channel allow-list")
	}
	if dedup == nil {
		return nil, fmt.Errorf("new listener: nil dedup store")
	}
	if forwarder == nil {
		return nil, fmt.Errorf("new listener: nil forwarder")
	}

	l := &Listener{
		channels:  make(map[string]struct{}, len(channelIDs)),
		dedup:     dedup,
		forwarder: forwarder,
		logger:    slog.Default(),
		metrics:   metrics.New(),
	}
	for _, id := range channelIDs {
		l.channels[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Handle runs one message through the filter, dedup and forward steps.
// Forwarding failures release the message id so a redelivery may retry.
func (l *Listener) Handle(ctx context.Context, msg Message) Outcome {
	if len(msg.Embeds) == 0 {
		return l.discard(OutcomeNoEmbeds, metrics.ReasonNoEmbeds)
	}
	if _, ok := l.channels[msg.ChannelID]; !ok {
		return l.discard(OutcomeChannelIgnored, metrics.ReasonChannelIgnored)
	}
	if !l.dedup.CreateIfNotExists(msg.ID) {
		l.logger.Debug("duplicate message skipped", "message_id", msg.ID)
		return l.discard(OutcomeDuplicate, metrics.ReasonDuplicate)
	}

	start := time.Now()
	err := l.forwarder.Forward(ctx, msg.ID, msg.Embeds)
	l.metrics.ForwardDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if relErr := l.dedup.MarkFailed(msg.ID); relErr != nil {
			l.logger.Error("release message id failed", "message_id", msg.ID, "error", relErr)
		}
		l.metrics.ForwardFailures.Inc()
		l.logger.Error("forward failed", "message_id", msg.ID, "channel_id", msg.ChannelID, "error", err)
		return OutcomeForwardFailed
	}

	if err := l.dedup.MarkDone(msg.ID); err != nil {
		l.logger.Error("mark message done failed", "message_id", msg.ID, "error", err)
	}
	l.metrics.MessagesForwarded.Inc()
	l.logger.Info("embeds forwarded", "message_id", msg.ID, "channel_id", msg.ChannelID, "embeds", len(msg.Embeds))
	return OutcomeForwarded
}

// Run consumes source until ctx is cancelled or the source stops.
func (l *Listener) Run(ctx context.Context, source Source) error {
	if source == nil {
		return fmt.Errorf("listener run: nil source")
	}
	if err := source.Consume(ctx, func(ctx context.Context, msg Message) {
		l.Handle(ctx, msg)
	}); err != nil {
		return fmt.Errorf("listener run: %w", err)
	}
	return nil
}

func (l *Listener) discard(outcome Outcome, reason string) Outcome {
	l.metrics.MessagesDiscarded.WithLabelValues(reason).Inc()
	return outcome
}
