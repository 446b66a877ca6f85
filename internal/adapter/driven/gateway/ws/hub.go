package ws

import (
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Hub fans call state snapshots out to every connected UI client. A client
// that registers receives the latest snapshot right away. Snapshots that
// arrive faster than they can be sent are coalesced, the latest always wins.
type Hub struct {
	clients    map[Client]bool
	broadcast  chan struct{}
	register   chan Client
	unregister chan Client
	quit       chan struct{}
	stopOnce   sync.Once

	mu   sync.Mutex
	last domain.CallState
}

var _ port.CallObserver = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[Client]bool),
		broadcast:  make(chan struct{}, 1),
		register:   make(chan Client),
		unregister: make(chan Client),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) CallStateChanged(state domain.CallState) {
	h.mu.Lock()
	h.last = state
	h.mu.Unlock()

	select {
	case h.broadcast <- struct{}{}:
	default:
		log.Debug().Msg("Broadcast pending, call state coalesced")
	}
}

func (h *Hub) Last() domain.CallState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Info().Str("client_id", client.ID()).Msg("Client registered")
			if err := client.SendState(h.Last()); err != nil {
				h.drop(client, err)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Info().Str("client_id", client.ID()).Msg("Client unregistered")
			}

		case <-h.broadcast:
			state := h.Last()
			for client := range h.clients {
				if err := client.SendState(state); err != nil {
					h.drop(client, err)
				}
			}
		}
	}
}

func (h *Hub) drop(client Client, err error) {
	log.Error().Err(err).Str("client_id", client.ID()).Msg("Error sending call state")
	client.Close()
	delete(h.clients, client)
}

func (h *Hub) Register(c Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.Close()
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
