package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"sync"
	"time"
)

var ErrHubStopped = errors.New("websocket hub stopped")

// Event is the frame written to a socket.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type outbound struct {
	env     entity.Envelope
	exclude *Client
}

// Hub keeps the connected sockets and routes envelopes to the users in their audience.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With(sl.Module("ws")),
	}
}

// Run starts the hub's event loop and returns when ctx is done. Call it once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("socket connected", slog.String("user_id", client.user.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case out := <-h.broadcast:
			data, err := json.Marshal(&Event{Type: string(out.env.Event.Type), Data: out.env.Event})
			if err != nil {
				h.log.With(sl.Err(err)).Error("marshal event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if client == out.exclude || !client.user.Receives(out.env.Audience) {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Deliver queues env for the sockets in its audience.
func (h *Hub) Deliver(ctx context.Context, env entity.Envelope) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- outbound{env: env}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// add registers c unless the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Connected returns the number of registered sockets.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type typingData struct {
	OpportunityID string `json:"opportunity_id"`
	ClientID      string `json:"client_id"`
}

// HandleClientMessage parses a frame sent by a socket. Only typing
// indicators are accepted; they are relayed to the rest of the thread audience.
func (h *Hub) HandleClientMessage(from *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case "typing":
		var data typingData
		if err := json.Unmarshal(event.Data, &data); err != nil || data.OpportunityID == "" {
			return
		}
		user := from.user
		clientID := data.ClientID
		if user.IsClient() {
			clientID = user.ClientID
		}
		if clientID == "" || !user.CanActFor(user.AgencyID, clientID) {
			return
		}
		typing := entity.Event{
			Type:          entity.EventTyping,
			AgencyID:      user.AgencyID,
			OpportunityID: data.OpportunityID,
			ClientID:      clientID,
			ActorID:       user.UserID,
			OccurredAt:    time.Now().UTC(),
		}
		select {
		case h.broadcast <- outbound{env: entity.Envelope{Event: typing, Audience: entity.AudienceFor(typing)}, exclude: from}:
		default:
		}
	default:
		h.log.Debug("unsupported client frame", slog.String("type", event.Type))
	}
}
