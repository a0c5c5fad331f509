package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestNotificationsWebSocket(t *testing.T) {
	hub := app.NewHub()
	tokens := auth.NewTokens("test-secret", time.Hour)
	handler := NewNotificationsHandler(hub, tokens)

	mux := http.NewServeMux()
	mux.Handle("/ws/notifications", handler)
	server := httptest.NewServer(withLogging(mux))
	defer server.Close()

	token, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	u := "ws" + server.URL[len("http"):] + "/ws/notifications?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The connected message is sent after the subscription is registered.
	readNext(conn, t, "connected")

	msg := domain.NotificationMessage{Type: "notification", Message: `New quiz "Basics" is available. Take it now!`}
	if err := hub.Publish(context.Background(), 7, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got := readNext(conn, t, "notification")
	if got.Message != msg.Message {
		t.Fatalf("expected %q, got %q", msg.Message, got.Message)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readNext(conn, t, "pong")
}

func TestNotificationsWebSocketRejectsBadToken(t *testing.T) {
	handler := NewNotificationsHandler(app.NewHub(), auth.NewTokens("test-secret", time.Hour))
	server := httptest.NewServer(handler)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) domain.NotificationMessage {
	t.Helper()
	var msg domain.NotificationMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg
}
