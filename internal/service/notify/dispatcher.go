// Package notify fans domain events out to every configured transport.
// Publishing never fails the caller; delivery problems are logged.
package notify

import (
	"context"
	"errors"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"sync"
	"time"
)

const queueSize = 256

// Transport delivers an envelope to its recipients.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, env entity.Envelope) error
}

type Dispatcher struct {
	transports []Transport
	timeout    time.Duration
	queue      chan entity.Event
	done       chan struct{}
	mu         sync.RWMutex
	closed     bool
	log        *slog.Logger
}

func NewDispatcher(log *slog.Logger, timeout time.Duration, transports ...Transport) *Dispatcher {
	return &Dispatcher{
		transports: transports,
		timeout:    timeout,
		queue:      make(chan entity.Event, queueSize),
		done:       make(chan struct{}),
		log:        log.With(sl.Module("notify")),
	}
}

// AddTransport registers t. Call before Start.
func (d *Dispatcher) AddTransport(t Transport) {
	d.transports = append(d.transports, t)
}

// Start runs the delivery loop. Events are delivered in publish order.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for event := range d.queue {
			_ = d.Dispatch(context.Background(), event)
		}
	}()
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

// Publish queues event for delivery and returns immediately. When the queue is
// full the event is dropped; clients catch up by polling.
func (d *Dispatcher) Publish(_ context.Context, event entity.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("event dropped after close", slog.String("type", string(event.Type)))
		return
	}
	select {
	case d.queue <- event:
	default:
		d.log.With(
			slog.String("type", string(event.Type)),
			slog.String("opportunity_id", event.OpportunityID),
		).Warn("event dropped, queue full")
	}
}

// Dispatch delivers event to every transport concurrently, each bounded by the
// dispatcher timeout and detached from ctx cancellation. The returned error
// joins every *entity.DeliveryError.
func (d *Dispatcher) Dispatch(ctx context.Context, event entity.Event) error {
	env := entity.Envelope{Event: event, Audience: entity.AudienceFor(event)}
	base := context.WithoutCancel(ctx)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, t := range d.transports {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := t.Deliver(tctx, env); err != nil {
				derr := &entity.DeliveryError{Transport: t.Name(), Event: event.Type, Err: err}
				d.log.With(
					sl.Err(err),
					slog.String("transport", t.Name()),
					slog.String("type", string(event.Type)),
					slog.String("opportunity_id", event.OpportunityID),
				).Warn("delivery failed")
				mu.Lock()
				errs = append(errs, derr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
