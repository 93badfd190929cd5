package http

import (
	"encoding/json"
	"log"
	"net/http"

	"qr-hunt-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades connections and wires them into the hub. Inbound
// control messages: join (subscribe to a team room) and
// request_leaderboard (direct pull). Everything else the client sees is
// pushed by the engine through the hub.
type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	TeamID string `json:"teamId"`
}

// ServeWS upgrades HTTP requests to websockets and pumps hub events to
// the client until it disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{send: make(chan app.Event, 16)}
	h.hub.register(c)
	defer h.hub.unregister(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range c.send {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.TeamID == "" {
				c.deliver(app.Event{Type: "error", Payload: map[string]string{"message": "invalid join payload"}})
				continue
			}
			h.hub.join(c, payload.TeamID)
		case "request_leaderboard":
			entries, err := h.service.Leaderboard(r.Context())
			if err != nil {
				c.deliver(app.Event{Type: "error", Payload: map[string]string{"message": "leaderboard unavailable"}})
				continue
			}
			c.deliver(app.Event{Type: app.EventLeaderboardUpdate, Payload: entries})
		default:
			c.deliver(app.Event{Type: "error", Payload: map[string]string{"message": "unsupported message type"}})
		}
	}

	h.hub.unregister(c)
	<-writerDone
}
