package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/naksha/availability-core/internal/realtime"
	"github.com/naksha/availability-core/pkg/logger"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
)

// WebSocketHandler upgrades connections into the realtime hub (C7's
// transport). A connection only receives change notifications once it sends
// a subscribe message naming the consultant slug it's watching.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	manager  *realtime.SubscriptionManager
	log      logger.Logger
}

func NewWebSocketHandler(manager *realtime.SubscriptionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		manager: manager,
		log:     logger.ComponentLogger(log, "websocket_handler"),
	}
}

// subscriptionMessage is the structure of inbound messages from a client.
type subscriptionMessage struct {
	Type           string `json:"type"`
	ConsultantSlug string `json:"consultantSlug,omitempty"`
}

// HandleConnections upgrades the request and starts its read/write pumps.
func (h *WebSocketHandler) HandleConnections(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	client := &realtime.Client{
		ID:      realtime.GenerateClientID(),
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Manager: h.manager,
	}

	h.manager.EnqueueClientRegistration(client)

	go h.writePump(client)
	go h.readPump(client)
}

// readPump pumps messages from the connection to the hub. There is at most
// one reader per connection, running in this goroutine.
func (h *WebSocketHandler) readPump(client *realtime.Client) {
	defer func() {
		client.Manager.UnregisterClient(client)
		if err := client.Conn.Close(); err != nil {
			h.log.Error("error closing connection on readPump exit", "clientId", client.ID, "error", err)
		}
	}()

	client.Conn.SetReadLimit(wsMaxMessageSize)
	if err := client.Conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.log.Error("failed to set read deadline", "clientId", client.ID, "error", err)
		return
	}
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Error("websocket read error", "clientId", client.ID, "error", err)
			}
			break
		}

		var msg subscriptionMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.log.Warn("failed to unmarshal client message", "clientId", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.ConsultantSlug != "" {
				client.Manager.RegisterClient(client, msg.ConsultantSlug)
			} else {
				h.log.Warn("subscribe message missing consultantSlug", "clientId", client.ID)
			}
		default:
			h.log.Debug("unknown message type from client", "clientId", client.ID, "type", msg.Type)
		}

		if err := client.Conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
			h.log.Error("failed to reset read deadline", "clientId", client.ID, "error", err)
			break
		}
	}
}

// writePump pumps messages from the hub to the connection, plus periodic
// pings. There is at most one writer per connection, running in this
// goroutine.
func (h *WebSocketHandler) writePump(client *realtime.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		if err := client.Conn.Close(); err != nil {
			h.log.Error("error closing connection on writePump exit", "clientId", client.ID, "error", err)
		}
	}()

	for {
		select {
		case message, ok := <-client.Send:
			if err := client.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				h.log.Error("failed to set write deadline", "clientId", client.ID, "error", err)
			}
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				h.log.Error("failed to get next writer", "clientId", client.ID, "error", err)
				return
			}
			if _, err := w.Write(message); err != nil {
				h.log.Error("error writing message", "clientId", client.ID, "error", err)
			}
			if err := w.Close(); err != nil {
				h.log.Error("error closing message writer", "clientId", client.ID, "error", err)
				return
			}
		case <-ticker.C:
			if err := client.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				h.log.Error("failed to set write deadline for ping", "clientId", client.ID, "error", err)
				return
			}
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Error("error writing ping", "clientId", client.ID, "error", err)
				return
			}
		}
	}
}
