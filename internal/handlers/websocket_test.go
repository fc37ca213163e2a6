package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fairplay-backend/internal/handlers"
)

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) handlers.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg handlers.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebSocketReceivesSettlement(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 5)

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	initial := readUntil(t, conn, "BALANCE_UPDATE")
	if initial.UserID != 5 {
		t.Errorf("Expected balance update for user 5, got %d", initial.UserID)
	}

	if err := conn.WriteJSON(handlers.Message{Type: "PING"}); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}
	readUntil(t, conn, "PONG")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/games/crash/play",
		bytes.NewBufferString(`{"amount":"1","cashout_multiplier":"2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to place bet: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	settled := readUntil(t, conn, "BET_SETTLED")
	data, ok := settled.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected bet result payload, got %T", settled.Data)
	}
	if data["game_type"] != "crash" {
		t.Errorf("Expected crash settlement, got %v", data["game_type"])
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	srv := newTestServer(t, 100)

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("Expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 handshake response, got %v", resp)
	}
}
