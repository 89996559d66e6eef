package invservice

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// Feed broadcasts record mutations to connected dev tools over
// websocket. Best effort: a slow or dead client is dropped, never
// waited on. The sync engine does not consume this feed.
type Feed struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	closed   bool
}

// NewFeed creates an empty observer feed.
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Dev tooling only; the endpoint carries no authority.
				return true
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWS upgrades the connection and registers it for events.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Feed upgrade failed: %v", err)
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[conn] = true
	f.mu.Unlock()
	log.Printf("Feed observer connected: %s", r.RemoteAddr)

	// Drain incoming frames so pings and closes are processed.
	go func() {
		defer f.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one event to every connected observer.
func (f *Feed) Broadcast(event models.FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(f.clients, conn)
		}
	}
}

// Close disconnects all observers.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for conn := range f.clients {
		conn.Close()
		delete(f.clients, conn)
	}
}

func (f *Feed) drop(conn *websocket.Conn) {
	conn.Close()
	f.mu.Lock()
	delete(f.clients, conn)
	f.mu.Unlock()
}
