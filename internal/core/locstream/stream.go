// Package locstream turns a push-based LocationProvider into a cold,
// cancellable sequence of positions.
//
// A Stream does nothing until it is observed. Observing registers exactly one
// callback with the provider; the resulting Activation owns the subscription
// handle and releases it exactly once, whichever way the activation ends:
// Cancel, cancellation of the observing context, or a provider error.
//
// The provider callback never blocks on the consumer. Positions are held in a
// bounded buffer (capacity 1 by default, so only the freshest position is
// kept); when it is full the oldest buffered position is dropped.
package locstream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
	"github.com/samirrijal/plaza/internal/pkg/telemetry"
)

// ErrAlreadyObserved is returned when Observe is called a second time on the
// same Stream. Streams are single-use; open a new one to resubscribe.
var ErrAlreadyObserved = errors.New("locstream: stream already observed")

var tracer = otel.Tracer("github.com/samirrijal/plaza/internal/core/locstream")

// Option configures a Stream.
type Option func(*options)

type options struct {
	buffer int
	logger *slog.Logger
}

// WithBuffer sets how many undelivered positions are retained. Values below 1
// are treated as 1.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.buffer = n
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Stream is a cold location stream bound to one provider and one request config.
type Stream struct {
	provider ports.LocationProvider
	cfg      domain.UpdateRequestConfig
	opts     options
	observed atomic.Bool
}

// Open prepares a stream. No provider call is made until Observe.
func Open(provider ports.LocationProvider, cfg domain.UpdateRequestConfig, opts ...Option) *Stream {
	o := options{buffer: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Stream{provider: provider, cfg: cfg, opts: o}
}

// Observe registers with the provider and returns the live activation.
//
// If registration fails the returned error wraps domain.ErrProviderUnavailable
// and nothing needs releasing. Cancelling ctx later cancels the activation.
func (s *Stream) Observe(ctx context.Context) (*Activation, error) {
	if !s.observed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyObserved
	}

	req := domain.NewLocationRequest(s.cfg)
	id := uuid.NewString()
	a := newActivation(s.provider, s.opts.buffer, s.opts.logger.With(
		"activation_id", id,
		"source", req.Source,
	))

	ctx, span := tracer.Start(ctx, "locstream.register")
	span.SetAttributes(
		telemetry.AttrLocationSource.String(req.Source),
		telemetry.AttrLocationPriority.String(req.Priority.String()),
		telemetry.AttrLocationInterval.Int64(req.Interval.Milliseconds()),
	)
	h, err := s.provider.Register(ctx, req, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
		span.End()
		a.fail(err)
		if errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	span.End()

	a.attach(h)
	a.logger.Debug("location stream registered",
		"interval", req.Interval.String(),
		"priority", req.Priority.String(),
	)

	stop := context.AfterFunc(ctx, a.Cancel)
	go func() {
		<-a.Done()
		stop()
	}()
	return a, nil
}

// Positions observes the stream lazily and yields each position. Breaking out
// of the loop cancels the activation. A provider failure is yielded once as a
// non-nil error, after which iteration ends.
func (s *Stream) Positions(ctx context.Context) iter.Seq2[domain.GeoPoint, error] {
	return func(yield func(domain.GeoPoint, error) bool) {
		a, err := s.Observe(ctx)
		if err != nil {
			yield(domain.GeoPoint{}, err)
			return
		}
		defer a.Cancel()

		for {
			p, ok, err := a.Next(ctx)
			if err != nil {
				if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
					yield(domain.GeoPoint{}, err)
				}
				return
			}
			if !ok {
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

func recordTermination(cause error) {
	label := "cancelled"
	switch {
	case errors.Is(cause, domain.ErrProviderDisconnected):
		label = "disconnected"
	case errors.Is(cause, domain.ErrProviderUnavailable):
		label = "unavailable"
	}
	metrics.LocationTerminations.WithLabelValues(label).Inc()
}
