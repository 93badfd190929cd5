package http

import (
	"testing"
	"time"

	"qr-hunt-service/internal/app"
	"github.com/gorilla/websocket"
)

func TestJoinedClientReceivesTeamScopedEvents(t *testing.T) {
	env := newTestEnv(t)
	defer env.server.Close()

	conn := dialWS(t, env)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "join", "payload": map[string]string{"teamId": "t1"}}); err != nil {
		t.Fatalf("join: %v", err)
	}
	// join has no ack; give the reader loop a beat to process it.
	time.Sleep(50 * time.Millisecond)

	env.postJSON(t, "/api/scan", map[string]string{"token": env.tokenFor(1), "teamId": "t1"}, nil)

	typ, _ := readEvent(t, conn)
	if typ != app.EventLevelStarted {
		t.Fatalf("expected level_started, got %s", typ)
	}

	env.postJSON(t, "/api/answer", map[string]string{"token": env.tokenFor(1), "teamId": "t1", "answer": "answer-1"}, nil)

	// Correct answer pushes a global leaderboard update and a team
	// update to the room; order across kinds is not guaranteed.
	kinds := map[string]bool{}
	for i := 0; i < 2; i++ {
		typ, _ := readEvent(t, conn)
		kinds[typ] = true
	}
	if !kinds[app.EventLeaderboardUpdate] || !kinds[app.EventTeamUpdate] {
		t.Fatalf("expected leaderboard and team updates, got %v", kinds)
	}
}

func TestUnjoinedClientOnlyReceivesGlobalEvents(t *testing.T) {
	env := newTestEnv(t)
	defer env.server.Close()

	conn := dialWS(t, env)
	defer conn.Close()

	env.postJSON(t, "/api/scan", map[string]string{"token": env.tokenFor(1), "teamId": "t1"}, nil)
	env.postJSON(t, "/api/answer", map[string]string{"token": env.tokenFor(1), "teamId": "t1", "answer": "answer-1"}, nil)

	// The only event this session may see is the global leaderboard
	// update; level_started and team:update are scoped to t1's room.
	typ, _ := readEvent(t, conn)
	if typ != app.EventLeaderboardUpdate {
		t.Fatalf("expected only leaderboard:update, got %s", typ)
	}
}

func TestRequestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	defer env.server.Close()

	conn := dialWS(t, env)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "request_leaderboard"}); err != nil {
		t.Fatalf("request: %v", err)
	}

	typ, payload := readEvent(t, conn)
	if typ != app.EventLeaderboardUpdate {
		t.Fatalf("expected leaderboard:update, got %s", typ)
	}
	entries, ok := payload.([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %#v", payload)
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	env := newTestEnv(t)
	defer env.server.Close()

	conn := dialWS(t, env)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, _ := readEvent(t, conn)
	if typ != "error" {
		t.Fatalf("expected error event, got %s", typ)
	}
}

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	u := "ws" + env.server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, any) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
