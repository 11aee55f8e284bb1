package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/pkg/slogx"
)

// Handler reacts to a domain event. Handlers must not block for long; they
// run inline on the publishing goroutine.
type Handler func(ctx context.Context, ev domain.Event)

// Bus is a minimal in-process event bus. Publish never fails: a handler
// panic is recovered and logged, and an event with no subscribers is
// silently dropped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers ev to every subscriber for its name.
func (b *Bus) Publish(ctx context.Context, ev domain.Event) {
	b.mu.RLock()
	hs := b.handlers[ev.EventName()]
	b.mu.RUnlock()

	for _, h := range hs {
		b.dispatch(ctx, ev, h)
	}
}

func (b *Bus) dispatch(ctx context.Context, ev domain.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			slogx.FromContext(ctx).Error("event handler panicked",
				slog.String("event", ev.EventName()),
				slog.Any("panic", r),
			)
		}
	}()
	h(ctx, ev)
}
