package websocket

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/namethat/namethat/game/session"
	"github.com/namethat/namethat/game/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// ServeWS upgrades an HTTP request and supervises the resulting
// connection until it ends. It blocks for the life of the connection.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, games *store.Store, sessions session.Store, gameID uuid.UUID, identity Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// The request context dies with the handler of a hijacked connection,
	// so the supervisor runs on its own context.
	NewClient(conn, hub, games, sessions, gameID, identity).Run(context.Background())
}
