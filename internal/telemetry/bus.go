package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus fans events out to subscribers over buffered channels. Post blocks while a
// subscriber's buffer is full, so a slow consumer slows the mission down instead of
// losing events. Consumers call Acknowledge once per received event; Shutdown waits
// for every delivered event to be acknowledged.
type Bus struct {
	logger *zap.Logger

	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int

	// processingWg counts delivered but unacknowledged events.
	processingWg sync.WaitGroup
	// activePostsWg counts Post calls in flight.
	activePostsWg sync.WaitGroup

	isShutdown bool
	shutdownMu sync.Mutex
}

var _ Sink = (*Bus)(nil)

// NewBus creates a bus whose subscriber channels hold bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		logger:      logger.Named("telemetry_bus"),
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Emit posts ev and logs delivery failures. It satisfies Sink.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	if err := b.Post(ctx, ev); err != nil {
		b.logger.Warn("Dropped telemetry event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// Post delivers ev to every subscriber of its type.
func (b *Bus) Post(ctx context.Context, ev Event) (err error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return fmt.Errorf("cannot post event: bus is shut down")
	}
	b.activePostsWg.Add(1)
	b.shutdownMu.Unlock()
	defer b.activePostsWg.Done()

	// A send on a channel closed by Shutdown panics; the delivery it was counted
	// for never happened, so give the count back.
	defer func() {
		if r := recover(); r != nil {
			b.processingWg.Done()
			b.logger.Debug("Recovered from panic in Post, likely due to shutdown.", zap.Any("panic", r))
			err = fmt.Errorf("failed to post event: bus is shutting down")
		}
	}()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := b.subscribers[ev.Type]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return nil
	}
	targets := make([]chan Event, len(subs))
	copy(targets, subs)
	b.mu.RUnlock()

	for _, ch := range targets {
		b.processingWg.Add(1)
		select {
		case ch <- ev:
		case <-ctx.Done():
			b.processingWg.Done()
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel receiving the given event types, or every type when
// none are named, plus a function that unsubscribes and closes the channel.
func (b *Bus) Subscribe(types ...EventType) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if len(types) == 0 {
		types = AllEventTypes()
	}
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.isShutdownLocked() {
				return
			}
			for _, t := range types {
				subs := b.subscribers[t]
				for i, c := range subs {
					if c == ch {
						b.subscribers[t] = append(subs[:i], subs[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (b *Bus) isShutdownLocked() bool {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	return b.isShutdown
}

// Acknowledge marks one received event as processed.
func (b *Bus) Acknowledge(Event) {
	b.processingWg.Done()
}

// Shutdown stops accepting events, closes every subscriber channel and waits until
// in-flight posts return and delivered events are acknowledged.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	b.mu.Lock()
	unique := make(map[chan Event]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			unique[ch] = struct{}{}
		}
	}
	for ch := range unique {
		close(ch)
	}
	b.subscribers = make(map[EventType][]chan Event)
	b.mu.Unlock()

	b.activePostsWg.Wait()
	b.processingWg.Wait()
}
