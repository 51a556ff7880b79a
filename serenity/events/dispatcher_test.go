package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchDeliversToHandler(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 2, 0, time.Millisecond)
	defer d.Close()

	var mu sync.Mutex
	var got []string
	d.On("mood/updated", func(_ context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.Payload.(string))
		return nil
	})

	id := d.Dispatch("mood/updated", "payload-1")
	d.Drain()

	assert.NotEmpty(t, id)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "payload-1", got[0])
}

func TestDispatchRedeliversUntilSuccess(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 5, time.Millisecond)
	defer d.Close()

	var attempts int32
	d.On("therapy/session.created", func(context.Context, Event) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	})

	d.Dispatch("therapy/session.created", nil)
	d.Drain()

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDispatchGivesUpAfterRetryCap(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 2, time.Millisecond)
	defer d.Close()

	var attempts int32
	d.On("therapy/session.created", func(context.Context, Event) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent failure")
	})

	d.Dispatch("therapy/session.created", nil)
	d.Drain()

	// Initial delivery plus maxRetries redeliveries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDispatchHandlerPanicTriggersRedelivery(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 3, time.Millisecond)
	defer d.Close()

	var attempts int32
	d.On("mood/updated", func(context.Context, Event) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			panic("boom")
		}
		return nil
	})

	d.Dispatch("mood/updated", nil)
	d.Drain()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestDispatchUnknownEventIsDropped(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 1, 0, time.Millisecond)
	defer d.Close()

	d.Dispatch("no/such.event", nil)
	d.Drain()
}

func TestConcurrentEventsAreIsolated(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 4, 0, time.Millisecond)
	defer d.Close()

	var count int32
	d.On("therapy/session.message", func(context.Context, Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	for i := 0; i < 50; i++ {
		d.Dispatch("therapy/session.message", i)
	}
	d.Drain()

	assert.Equal(t, int32(50), atomic.LoadInt32(&count))
}
