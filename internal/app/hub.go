package app

import (
	"context"
	"sync"

	"company-quiz-service/internal/domain"
)

const hubBuffer = 8

// Hub delivers notification messages to the realtime subscribers of each user on this
// instance. It satisfies Publisher for single-instance deployments.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.NotificationMessage]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64]map[chan domain.NotificationMessage]struct{})}
}

// Subscribe registers a channel for userID. cancel unregisters and closes it.
func (h *Hub) Subscribe(userID int64) (<-chan domain.NotificationMessage, func()) {
	ch := make(chan domain.NotificationMessage, hubBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.NotificationMessage]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[userID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish hands msg to every subscriber of userID. A full subscriber loses its oldest
// pending message instead of blocking the publisher.
func (h *Hub) Publish(_ context.Context, userID int64, msg domain.NotificationMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[userID] {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
	return nil
}

// Subscribers reports how many channels are open for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}
