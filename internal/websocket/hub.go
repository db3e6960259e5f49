package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"souq/server/internal/logger"

	"github.com/rs/zerolog"
)

// Bridge relays frames between hub instances running in different
// processes. Publish hands a frame to every instance, Subscribe blocks and
// calls deliver for every frame published under hub until ctx is done.
type Bridge interface {
	Publish(ctx context.Context, hub, identity string, data []byte) error
	Subscribe(ctx context.Context, hub string, deliver func(identity string, data []byte)) error
}

// Hub tracks the live connections of each identity. An identity may hold
// any number of connections (tabs, devices), and a push reaches all of them.
type Hub struct {
	name string

	// Connections per canonical identity
	clients map[string]map[*Client]struct{}

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	bridge Bridge
	log    zerolog.Logger
	mu     sync.RWMutex
}

// NewHub creates a hub. name tags its logs and its bridge channel.
func NewHub(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		log:        logger.L().With().Str(logger.FieldHub, name).Logger(),
	}
}

// WithBridge makes PushToUser fan out through b instead of delivering locally.
func (h *Hub) WithBridge(b Bridge) *Hub {
	h.bridge = b
	return h
}

func (h *Hub) Name() string {
	return h.name
}

// Run processes registrations until ctx is done, then closes every
// connection's send queue.
func (h *Hub) Run(ctx context.Context) {
	if h.bridge != nil {
		go func() {
			if err := h.bridge.Subscribe(ctx, h.name, h.deliverLocal); err != nil && ctx.Err() == nil {
				h.log.Error().Err(err).Msg("bridge subscription ended")
			}
		}()
	}

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.Identity]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.Identity] = set
	}
	set[client] = struct{}{}

	h.log.Debug().
		Str(logger.FieldIdentity, client.Identity).
		Int("connections", len(set)).
		Msg("client connected")
}

// unregisterClient is safe to call more than once for the same client.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.Identity]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.Identity)
	}

	h.log.Debug().
		Str(logger.FieldIdentity, client.Identity).
		Int("connections", len(set)).
		Msg("client disconnected")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for identity, set := range h.clients {
		for client := range set {
			close(client.Send)
		}
		delete(h.clients, identity)
	}
}

// PushToUser sends message to every connection of identity. An identity
// with no connection is not an error.
func (h *Hub) PushToUser(ctx context.Context, identity string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error().Err(err).Str(logger.FieldEvent, string(message.Type)).Msg("failed to marshal message")
		return
	}

	if h.bridge != nil {
		err := h.bridge.Publish(ctx, h.name, identity, data)
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Str(logger.FieldIdentity, identity).Msg("bridge publish failed, delivering locally")
	}

	h.deliverLocal(identity, data)
}

// deliverLocal queues data on this process's connections of identity.
// Connections whose queue is full are dropped.
func (h *Hub) deliverLocal(identity string, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients[identity] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn().Str(logger.FieldIdentity, identity).Msg("send queue full, dropping connection")
		h.unregisterClient(client)
	}
}

// IsUserOnline checks if an identity has at least one connection here
func (h *Hub) IsUserOnline(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[identity]) > 0
}

// OnlineUsers returns the connected identities, sorted.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	identities := make([]string, 0, len(h.clients))
	for identity := range h.clients {
		identities = append(identities, identity)
	}
	sort.Strings(identities)

	return identities
}

// OnlineCount returns the number of connected identities.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
