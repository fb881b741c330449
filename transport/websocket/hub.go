package websocket

import (
	"log"

	"github.com/google/uuid"
)

// Broadcast is one published frame. Every subscriber receives every
// broadcast and filters on GameID itself; at party scale that is cheaper
// than managing per-game topics.
type Broadcast struct {
	GameID  uuid.UUID
	Payload []byte
}

// subscriberBuffer bounds how far a slow connection may fall behind
// before the hub drops it.
const subscriberBuffer = 64

// Subscription is one listener on the hub. Receive from C until it is
// closed, then stop: a closed channel means the hub dropped the
// subscriber for falling behind.
type Subscription struct {
	ch chan Broadcast
}

// C returns the channel broadcasts arrive on.
func (s *Subscription) C() <-chan Broadcast {
	return s.ch
}

// Hub is the process-wide broadcast point. All connections, across all
// games, subscribe to the one hub.
type Hub struct {
	subscribers map[*Subscription]bool

	broadcast  chan Broadcast
	register   chan *Subscription
	unregister chan *Subscription
}

// NewHub creates a hub. Call Run in its own goroutine before using it.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*Subscription]bool),
		broadcast:   make(chan Broadcast),
		register:    make(chan *Subscription),
		unregister:  make(chan *Subscription),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = true

		case sub := <-h.unregister:
			h.drop(sub)

		case b := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.ch <- b:
				default:
					// Subscriber is not draining its channel. Cut it
					// loose rather than block everyone else.
					log.Printf("dropping slow hub subscriber (game %s)", b.GameID)
					h.drop(sub)
				}
			}
		}
	}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Broadcast, subscriberBuffer)}
	h.register <- sub
	return sub
}

// Unsubscribe removes a listener. Its channel is closed.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.unregister <- sub
}

// Publish fans a frame out to every subscriber. Publishing with no
// subscribers is not an error; the frame is simply dropped.
func (h *Hub) Publish(b Broadcast) {
	h.broadcast <- b
}

func (h *Hub) drop(sub *Subscription) {
	if h.subscribers[sub] {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
}
