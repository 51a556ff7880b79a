package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one dispatched unit of work. Payload is whatever the producer
// handed in; handlers assert it back to the concrete event type.
type Event struct {
	ID      string
	Name    string
	Payload interface{}
}

// Handler processes one event delivery. Returning an error triggers
// redelivery, so handlers must be idempotent.
type Handler func(ctx context.Context, evt Event) error

type delivery struct {
	evt     Event
	attempt int
}

// Dispatcher is an in-process, at-least-once event runner: named handlers,
// a bounded worker pool, and exponential-backoff redelivery up to a retry
// cap. It stands in for an external event-driven task scheduler; pipeline
// runs are redelivered whole on unhandled failure.
type Dispatcher struct {
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration

	mu       sync.RWMutex
	handlers map[string][]Handler

	queue   chan delivery
	wg      sync.WaitGroup
	pending sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewDispatcher(logger *zap.Logger, workers, maxRetries int, backoff time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		logger:     logger,
		maxRetries: maxRetries,
		backoff:    backoff,
		handlers:   make(map[string][]Handler),
		queue:      make(chan delivery, 256),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// On registers a handler for a named event. Registration is expected to
// happen during wiring, before events start flowing.
func (d *Dispatcher) On(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// Dispatch enqueues an event and returns its assigned id. It never blocks
// the producer: if the queue is full the event is dropped with an error
// log, mirroring resource exhaustion in an external scheduler.
func (d *Dispatcher) Dispatch(name string, payload interface{}) string {
	evt := Event{ID: uuid.NewString(), Name: name, Payload: payload}
	d.pending.Add(1)
	select {
	case d.queue <- delivery{evt: evt, attempt: 1}:
	default:
		d.pending.Done()
		d.logger.Error("event queue full, dropping event",
			zap.String("event", name),
			zap.String("event_id", evt.ID),
		)
	}
	return evt.ID
}

// Drain waits for all in-flight and queued deliveries (including pending
// redeliveries) to finish. Intended for shutdown and tests.
func (d *Dispatcher) Drain() {
	d.pending.Wait()
}

// Close drains outstanding work and stops the workers.
func (d *Dispatcher) Close() {
	d.pending.Wait()
	d.cancel()
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for del := range d.queue {
		d.deliver(del)
	}
}

func (d *Dispatcher) deliver(del delivery) {
	defer d.pending.Done()

	d.mu.RLock()
	handlers := d.handlers[del.evt.Name]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Info("no handler registered for event",
			zap.String("event", del.evt.Name),
		)
		return
	}

	var failed bool
	for _, h := range handlers {
		if err := d.safeHandle(h, del.evt); err != nil {
			failed = true
			d.logger.Error("event handler failed",
				zap.Error(err),
				zap.String("event", del.evt.Name),
				zap.String("event_id", del.evt.ID),
				zap.Int("attempt", del.attempt),
			)
		}
	}
	if !failed {
		return
	}

	if del.attempt > d.maxRetries {
		d.logger.Error("event dropped after retries exhausted",
			zap.String("event", del.evt.Name),
			zap.String("event_id", del.evt.ID),
			zap.Int("attempts", del.attempt),
		)
		return
	}

	// Redeliver the whole event after backoff. The timer goroutine keeps
	// workers free while the delay elapses.
	wait := d.backoff << (del.attempt - 1)
	d.pending.Add(1)
	time.AfterFunc(wait, func() {
		select {
		case d.queue <- delivery{evt: del.evt, attempt: del.attempt + 1}:
		case <-d.ctx.Done():
			d.pending.Done()
		}
	})
}

func (d *Dispatcher) safeHandle(h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.Any("recover", r),
				zap.String("event", evt.Name),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(d.ctx, evt)
}
