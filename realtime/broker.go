package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is the envelope sent to every subscriber
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Broker fans events out to Server-Sent Events and WebSocket subscribers
type Broker struct {
	clients    map[chan []byte]bool
	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewBroker creates a new broker
func NewBroker() *Broker {
	return &Broker{
		clients:    make(map[chan []byte]bool),
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		broadcast:  make(chan []byte, 256),
		logger:     log.With().Str("component", "realtime").Logger(),
	}
}

// Run starts the broker loop and returns when ctx is cancelled
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().Int("clients", total).Msg("subscriber connected")

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client)
			}
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().Int("clients", total).Msg("subscriber disconnected")

		case msg := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client <- msg:
				default:
					// Skip if client buffer is full to prevent blocking
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected subscribers
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// subscribe registers a new client channel; ok is false once the request ends first
func (b *Broker) subscribe(ctx context.Context) (chan []byte, bool) {
	client := make(chan []byte, 16)
	select {
	case b.register <- client:
		return client, true
	case <-ctx.Done():
		return nil, false
	}
}

func (b *Broker) unsubscribe(client chan []byte) {
	// Run may already have exited and closed every client
	select {
	case b.unregister <- client:
	case <-time.After(time.Second):
	}
}

// ServeHTTP streams events as Server-Sent Events
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client, ok := b.subscribe(r.Context())
	if !ok {
		return
	}
	defer b.unsubscribe(client)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-client:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Broadcast sends an event to all connected clients; it never blocks
func (b *Broker) Broadcast(event string, payload interface{}) {
	jsonBytes, err := json.Marshal(Event{Event: event, Payload: payload, SentAt: time.Now()})
	if err != nil {
		b.logger.Error().Err(err).Str("event", event).Msg("failed to marshal broadcast")
		return
	}

	select {
	case b.broadcast <- jsonBytes:
	default:
		b.logger.Warn().Str("event", event).Msg("broadcast buffer full, dropping event")
	}
}
