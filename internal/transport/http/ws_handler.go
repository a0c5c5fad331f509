package http

import (
	"log"
	"net/http"

	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// Subscriber hands out per-user notification channels.
type Subscriber interface {
	Subscribe(userID int64) (<-chan domain.NotificationMessage, func())
}

type NotificationsHandler struct {
	subscriber Subscriber
	tokens     *auth.Tokens
	upgrader   websocket.Upgrader
}

func NewNotificationsHandler(subscriber Subscriber, tokens *auth.Tokens) *NotificationsHandler {
	return &NotificationsHandler{
		subscriber: subscriber,
		tokens:     tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

// ServeHTTP upgrades to a websocket and streams the token owner's notifications.
// Browsers cannot set headers on websocket requests, so the token comes from the query.
func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		writeError(w, r, domain.ErrNotAuthenticated)
		return
	}
	userID, err := h.tokens.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] ws upgrade failed user=%d: %v", userID, err)
		return
	}
	defer conn.Close()

	updates, cancel := h.subscriber.Subscribe(userID)
	defer cancel()

	send := make(chan domain.NotificationMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[WARN] ws write error user=%d: %v", userID, err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- domain.NotificationMessage{Type: "connected", Message: "subscribed to notifications"}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ping":
			send <- domain.NotificationMessage{Type: "pong"}
		default:
			send <- domain.NotificationMessage{Type: "error", Message: "unsupported message type"}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
