package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:user:"

// Publisher sends notification messages over Redis pub/sub so every instance can
// deliver them to its own websocket subscribers.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, userID int64, msg domain.NotificationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, userChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Relay forwards messages from every user channel into a local publisher (the hub).
type Relay struct {
	client *redis.Client
	local  app.Publisher
}

func NewRelay(client *redis.Client, local app.Publisher) *Relay {
	return &Relay{client: client, local: local}
}

// Run blocks until ctx is done. ready, if not nil, is closed once the subscription is live.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(ctx, m)
		}
	}
}

func (r *Relay) forward(ctx context.Context, m *redis.Message) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(m.Channel, channelPrefix), 10, 64)
	if err != nil {
		log.Printf("[WARN] relay: bad channel %q", m.Channel)
		return
	}
	var msg domain.NotificationMessage
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		log.Printf("[WARN] relay: bad payload on %s: %v", m.Channel, err)
		return
	}
	if err := r.local.Publish(ctx, userID, msg); err != nil {
		log.Printf("[WARN] relay: deliver user=%d: %v", userID, err)
	}
}

func userChannel(userID int64) string {
	return channelPrefix + strconv.FormatInt(userID, 10)
}
