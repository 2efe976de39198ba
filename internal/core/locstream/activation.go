package locstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
)

// State is the lifecycle position of an activation.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateTerminated:
		return "terminated"
	default:
		return "unregistered"
	}
}

// Activation is one observation of a Stream. It owns the provider
// subscription handle until the activation terminates.
type Activation struct {
	provider ports.LocationProvider
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	handle    ports.SubscriptionHandle
	hasHandle bool
	cause     error
	dropped   uint64

	buf        chan domain.GeoPoint
	terminated chan struct{} // closed on entering StateTerminated
	done       chan struct{} // closed once the handle has been released

	releaseOnce sync.Once
}

func newActivation(provider ports.LocationProvider, buffer int, logger *slog.Logger) *Activation {
	return &Activation{
		provider:   provider,
		logger:     logger,
		buf:        make(chan domain.GeoPoint, buffer),
		terminated: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// OnFixes implements ports.FixCallback. Only the newest fix of a batch is kept.
func (a *Activation) OnFixes(batch []domain.Fix) {
	if len(batch) == 0 {
		metrics.LocationEmptyBatches.Inc()
		return
	}
	a.offer(batch[len(batch)-1].Point())
}

// OnError implements ports.FixCallback.
func (a *Activation) OnError(err error) {
	switch {
	case err == nil:
		err = domain.ErrProviderDisconnected
	case !errors.Is(err, domain.ErrProviderDisconnected):
		err = fmt.Errorf("%w: %v", domain.ErrProviderDisconnected, err)
	}
	a.logger.Warn("location provider disconnected", "error", err)
	a.terminate(err)
}

// offer buffers p without ever blocking the caller. When the buffer is full
// the oldest position is discarded.
func (a *Activation) offer(p domain.GeoPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateTerminated {
		return
	}
	select {
	case a.buf <- p:
		return
	default:
	}
	select {
	case <-a.buf:
		a.dropped++
		metrics.LocationPositionsDropped.Inc()
	default:
	}
	// Sends only happen under mu, so there is room now.
	a.buf <- p
}

// Next waits for the next position.
//
// It returns (p, true, nil) for each position, (zero, false, nil) once the
// activation was cancelled, and (zero, false, err) when the provider failed.
// Positions buffered before a provider failure are still returned ahead of
// the error; cancellation discards them. Termination is only reported after
// the provider handle has been released. ctx bounds the wait; its
// cancellation returns ctx.Err() and leaves the activation running.
func (a *Activation) Next(ctx context.Context) (domain.GeoPoint, bool, error) {
	select {
	case <-a.terminated:
		return a.drain(ctx)
	default:
	}

	select {
	case p := <-a.buf:
		if a.cancelled() {
			return a.finish(ctx)
		}
		metrics.LocationPositionsDelivered.Inc()
		return p, true, nil
	case <-a.terminated:
		return a.drain(ctx)
	case <-ctx.Done():
		return domain.GeoPoint{}, false, ctx.Err()
	}
}

// cancelled reports whether the activation ended without a provider error.
func (a *Activation) cancelled() bool {
	select {
	case <-a.terminated:
		return a.Err() == nil
	default:
		return false
	}
}

// drain hands out what a failed provider left in the buffer before
// reporting termination.
func (a *Activation) drain(ctx context.Context) (domain.GeoPoint, bool, error) {
	if a.Err() != nil {
		select {
		case p := <-a.buf:
			metrics.LocationPositionsDelivered.Inc()
			return p, true, nil
		default:
		}
	}
	return a.finish(ctx)
}

func (a *Activation) finish(ctx context.Context) (domain.GeoPoint, bool, error) {
	select {
	case <-a.done:
	case <-ctx.Done():
		return domain.GeoPoint{}, false, ctx.Err()
	}
	return domain.GeoPoint{}, false, a.Err()
}

// Cancel terminates the activation and releases the provider handle. It is
// idempotent and safe to call from any goroutine, including from inside a
// provider callback.
func (a *Activation) Cancel() {
	a.terminate(nil)
}

// Done is closed once the activation has terminated and its handle is released.
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

// Err returns the terminal cause: nil while running or after Cancel.
func (a *Activation) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cause
}

// State returns the current lifecycle state.
func (a *Activation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Dropped returns how many positions were discarded because the consumer fell behind.
func (a *Activation) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// attach records the handle returned by a successful Register. If the
// activation was terminated while registration was in flight the handle is
// released straight away.
func (a *Activation) attach(h ports.SubscriptionHandle) {
	a.mu.Lock()
	a.handle = h
	a.hasHandle = true
	if a.state == StateTerminated {
		a.mu.Unlock()
		a.release(h)
		return
	}
	a.state = StateRegistered
	a.mu.Unlock()

	metrics.LocationActivations.Inc()
}

// fail terminates an activation whose registration never succeeded.
func (a *Activation) fail(err error) {
	a.mu.Lock()
	if a.state != StateTerminated {
		a.state = StateTerminated
		if errors.Is(err, domain.ErrProviderUnavailable) {
			a.cause = err
		} else {
			a.cause = fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		close(a.terminated)
		recordTermination(a.cause)
	}
	a.mu.Unlock()

	a.logger.Warn("location provider registration failed", "error", err)
	a.releaseOnce.Do(func() { close(a.done) })
}

func (a *Activation) terminate(cause error) {
	a.mu.Lock()
	if a.state == StateTerminated {
		a.mu.Unlock()
		return
	}
	wasRegistered := a.state == StateRegistered
	a.state = StateTerminated
	a.cause = cause
	close(a.terminated)
	h, ok := a.handle, a.hasHandle
	a.mu.Unlock()

	recordTermination(cause)
	if wasRegistered {
		metrics.LocationActivations.Dec()
	}
	// Without a handle, registration is still in flight; attach releases it.
	if ok {
		a.release(h)
	}
}

func (a *Activation) release(h ports.SubscriptionHandle) {
	a.releaseOnce.Do(func() {
		_, span := tracer.Start(context.Background(), "locstream.unregister")
		if err := a.provider.Unregister(h); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unregister failed")
			a.logger.Warn("location provider unregister failed", "error", err)
		} else {
			a.logger.Debug("location stream unregistered")
		}
		span.End()
		close(a.done)
	})
}
