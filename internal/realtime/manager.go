// Package realtime is the one concrete transport wired to the Coherence
// Controller's ChangeNotification channel (C7): a WebSocket hub that fans a
// notification out to every browser client currently subscribed to the
// affected consultant. It is not load-bearing for correctness — the core's
// only guarantee is emission ordering, not delivery (SPEC_FULL.md §4.7).
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/naksha/availability-core/pkg/events"
	"github.com/naksha/availability-core/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	ID             string
	Conn           *websocket.Conn
	Send           chan []byte
	ConsultantSlug string
	Manager        *SubscriptionManager
}

// SubscriptionManager maintains the set of active clients and fans messages
// out per consultant slug.
type SubscriptionManager struct {
	clients       map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	subscriptions map[string]map[*Client]bool
	logger        logger.Logger
	subscriber    *events.Subscriber
	mu            sync.RWMutex
}

func NewSubscriptionManager(log logger.Logger, subscriber *events.Subscriber) *SubscriptionManager {
	return &SubscriptionManager{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		logger:        logger.ComponentLogger(log, "realtime"),
		subscriber:    subscriber,
	}
}

// EnqueueClientRegistration hands a newly-connected client to the Run loop.
func (m *SubscriptionManager) EnqueueClientRegistration(client *Client) {
	m.register <- client
}

// Run is the hub's single event loop; call it in its own goroutine.
func (m *SubscriptionManager) Run() {
	m.logger.Info("subscription manager run loop started")
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			m.logger.Info("client registered", "clientId", client.ID)
		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.Send)
				for slug, clients := range m.subscriptions {
					if _, subscribed := clients[client]; subscribed {
						delete(m.subscriptions[slug], client)
						if len(m.subscriptions[slug]) == 0 {
							delete(m.subscriptions, slug)
						}
					}
				}
				m.logger.Info("client unregistered", "clientId", client.ID)
			}
			m.mu.Unlock()
		}
	}
}

// RegisterClient subscribes client to updates for consultantSlug.
func (m *SubscriptionManager) RegisterClient(client *Client, consultantSlug string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client == nil {
		m.logger.Error("attempted to register a nil client")
		return
	}
	client.ConsultantSlug = consultantSlug
	if _, ok := m.subscriptions[consultantSlug]; !ok {
		m.subscriptions[consultantSlug] = make(map[*Client]bool)
	}
	m.subscriptions[consultantSlug][client] = true
	m.logger.Info("client subscribed", "clientId", client.ID, "consultantSlug", consultantSlug)
}

// UnregisterClient routes removal through the Run loop to avoid racing the
// select there.
func (m *SubscriptionManager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// SendToConsultant delivers message to every client subscribed to slug.
// Sends are non-blocking: a client whose send buffer is full has the
// message dropped for it rather than stalling delivery to everyone else.
func (m *SubscriptionManager) SendToConsultant(consultantSlug string, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subscribers, ok := m.subscriptions[consultantSlug]
	if !ok {
		return
	}
	for client := range subscribers {
		select {
		case client.Send <- message:
		default:
			m.logger.Warn("client send buffer full, message dropped", "clientId", client.ID, "consultantSlug", consultantSlug)
		}
	}
}

func GenerateClientID() string {
	return uuid.New().String()
}

// WebSocketMessage is the envelope pushed to every subscribed browser client.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// BroadcastChangeNotification pushes a ChangeNotification-shaped payload
// directly to subscribers of its consultant, bypassing NATS — used when the
// Coherence Controller and this process are the same process.
func (m *SubscriptionManager) BroadcastChangeNotification(consultantSlug, kind string, payload interface{}) {
	msg := WebSocketMessage{Type: kind, Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("failed to marshal change notification", "error", err)
		return
	}
	m.SendToConsultant(consultantSlug, data)
}

// StartEventSubscriptions additionally forwards booking lifecycle events
// arriving over NATS from other processes to this process's WebSocket
// clients, so a horizontally-scaled deployment still gets realtime fan-out.
func (m *SubscriptionManager) StartEventSubscriptions() {
	if m.subscriber == nil {
		m.logger.Warn("no NATS subscriber configured, skipping cross-process event forwarding")
		return
	}

	subscribe := func(subject, wsType string) {
		err := m.subscriber.Subscribe(subject, func(data []byte) error {
			m.forwardEvent(data, wsType)
			return nil
		})
		if err != nil {
			m.logger.Error("failed to subscribe", "subject", subject, "error", err)
		}
	}

	subscribe(events.BookingConfirmedEvent, "booking_confirmed")
	subscribe(events.BookingCancelledEvent, "booking_cancelled")
	subscribe(events.PatternsUpdatedEvent, "patterns-updated")
	subscribe(events.SlotsUpdatedEvent, "slots-updated")
}

func (m *SubscriptionManager) forwardEvent(data []byte, wsType string) {
	var eventData map[string]interface{}
	if err := json.Unmarshal(data, &eventData); err != nil {
		m.logger.Error("failed to unmarshal forwarded event", "error", err)
		return
	}
	slug, ok := eventData["consultantSlug"].(string)
	if !ok {
		m.logger.Error("consultantSlug missing from forwarded event", "type", wsType)
		return
	}
	m.BroadcastChangeNotification(slug, wsType, eventData)
}
