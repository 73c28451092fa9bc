package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeNewMessage  MessageType = "new_message"
	MessageTypeError       MessageType = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    MessageType `json:"type"`
	Address string      `json:"address,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewMessagePayload represents the payload for new message notifications.
// It only announces arrival; clients fetch rendered content via polling.
type NewMessagePayload struct {
	ID          string `json:"id"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
}

// Hub maintains the set of active clients and broadcasts new-message
// events to the subscribers of a disposable address.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Address subscriptions: address -> set of clients
	subscriptions map[string]map[*Client]bool

	register           chan *Client
	unregister         chan *Client
	subscribe          chan *subscriptionRequest
	unsubscribeAddress chan *subscriptionRequest
	broadcast          chan *broadcastMessage

	mu     sync.RWMutex
	logger *slog.Logger
}

type subscriptionRequest struct {
	client  *Client
	address string
}

type broadcastMessage struct {
	address string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:            make(map[*Client]bool),
		subscriptions:      make(map[string]map[*Client]bool),
		register:           make(chan *Client),
		unregister:         make(chan *Client),
		subscribe:          make(chan *subscriptionRequest),
		unsubscribeAddress: make(chan *subscriptionRequest),
		broadcast:          make(chan *broadcastMessage, 256),
		logger:             logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for address, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, address)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.address] == nil {
				h.subscriptions[req.address] = make(map[*Client]bool)
			}
			h.subscriptions[req.address][req.client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed to address", slog.String("address", req.address))
			}

		case req := <-h.unsubscribeAddress:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.address]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.address)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			subscribers := h.subscriptions[msg.address]
			for client := range subscribers {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to an address
func (h *Hub) Subscribe(client *Client, address string) {
	h.subscribe <- &subscriptionRequest{client: client, address: normalize(address)}
}

// Unsubscribe unsubscribes a client from an address
func (h *Hub) Unsubscribe(client *Client, address string) {
	h.unsubscribeAddress <- &subscriptionRequest{client: client, address: normalize(address)}
}

// BroadcastNewMessage broadcasts a new-message notification to the
// subscribers of the given address.
func (h *Hub) BroadcastNewMessage(address string, payload *NewMessagePayload) {
	msg := WSMessage{
		Type:    MessageTypeNewMessage,
		Address: normalize(address),
		Message: payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{
		address: normalize(address),
		message: data,
	}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
