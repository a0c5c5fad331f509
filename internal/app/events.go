package app

import (
	"context"
	"sync"

	"company-quiz-service/internal/domain"
)

// EventHandler consumes events emitted after a store commit.
type EventHandler func(ctx context.Context, event domain.Event)

// EventBus fans committed-change events out to in-process consumers, synchronously.
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit runs every handler in subscription order. Safe on a nil bus.
func (b *EventBus) Emit(ctx context.Context, event domain.Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}
