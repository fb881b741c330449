package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/game/action"
	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/session"
	"github.com/namethat/namethat/game/store"
)

// Conn is the slice of a websocket connection the client needs. The
// gorilla *websocket.Conn satisfies it; tests substitute their own.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client supervises one connection to one game: it negotiates the role,
// runs the read and write pumps, and cleans up when either pump stops.
type Client struct {
	conn     Conn
	hub      *Hub
	games    *store.Store
	sessions session.Store
	gameID   uuid.UUID
	identity Identity

	// writeMu serializes frame writes: during negotiation only one
	// goroutine writes, but once active the write pump and error replies
	// from the read pump share the socket.
	writeMu sync.Mutex
}

// NewClient builds a supervisor for a freshly upgraded connection.
func NewClient(conn Conn, hub *Hub, games *store.Store, sessions session.Store, gameID uuid.UUID, identity Identity) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		games:    games,
		sessions: sessions,
		gameID:   gameID,
		identity: identity,
	}
}

// Run drives the connection through its whole life: negotiate, announce,
// pump until either direction dies, then tear down. It blocks until the
// connection is finished and always closes the socket.
func (c *Client) Run(ctx context.Context) {
	defer c.conn.Close()

	role, err := c.negotiate(ctx)
	if err != nil {
		log.Printf("join failed for game %s: %v", c.gameID, err)
		return
	}

	// Subscribe before announcing the join so this connection's own
	// NewPlayer and state snapshot land in its queue too.
	sub := c.hub.Subscribe()
	defer c.hub.Unsubscribe(sub)

	if err := c.sendMessage(model.JoinSuccess(role)); err != nil {
		log.Printf("failed to confirm join for game %s: %v", c.gameID, err)
		return
	}

	broadcaster := NewBroadcaster(c.hub, c.games, c.gameID)
	if err := broadcaster.NewPlayer(role); err != nil {
		log.Printf("failed to announce player: %v", err)
		return
	}
	if err := broadcaster.State(ctx); err != nil {
		log.Printf("failed to publish state after join: %v", err)
		return
	}

	c.pump(ctx, role, broadcaster, sub)

	// Teardown runs on a fresh context: the pump context is already
	// cancelled, but remaining participants still need the final state.
	if playerID, ok := role.PlayerID(); ok {
		teardown := context.Background()
		if _, err := c.games.MarkPlayerInactive(teardown, playerID); err != nil {
			log.Printf("failed to deactivate player %s: %v", playerID, err)
			return
		}
		if err := broadcaster.Notify(role.DisplayName + " disconnected"); err != nil {
			log.Printf("failed to announce departure: %v", err)
		}
		if err := broadcaster.State(teardown); err != nil {
			log.Printf("failed to publish state after departure: %v", err)
		}
	}
}

// pump runs the outbound and inbound units until one of them stops, then
// cancels the other. ReadMessage cannot be interrupted by a context, so
// cancellation closes the socket to unblock it.
func (c *Client) pump(ctx context.Context, role model.PlayerType, broadcaster *Broadcaster, sub *Subscription) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		c.writePump(ctx, sub)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		c.readPump(ctx, role, broadcaster)
	}()
	wg.Wait()
}

// writePump forwards hub broadcasts for this game to the socket.
func (c *Client) writePump(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-sub.C():
			if !ok {
				// The hub dropped us for falling behind.
				return
			}
			if b.GameID != c.gameID {
				continue
			}
			if err := c.write(b.Payload); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the socket dies. Observers get
// no say: their frames are read and dropped so a close is still noticed.
// For the other roles each frame is parsed, applied, and followed by a
// state publish; bad frames are logged and skipped so garbage from a
// client never kills its own connection.
func (c *Client) readPump(ctx context.Context, role model.PlayerType, broadcaster *Broadcaster) {
	svc := action.New(c.games, c.gameID, role)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if role.IsObserver() {
			continue
		}

		act, err := model.ParseAction(frame)
		if err != nil {
			log.Printf("dropping unparseable frame on game %s: %v", c.gameID, err)
			continue
		}

		if err := svc.Apply(ctx, act); err != nil {
			if apperr.IsFatal(err) {
				log.Printf("action %s failed fatally on game %s: %v", act.ActionType(), c.gameID, err)
				return
			}
			log.Printf("rejected action %s on game %s: %v", act.ActionType(), c.gameID, err)
			continue
		}

		if _, ok := act.(*model.PlayerJoin); ok {
			continue
		}
		if err := broadcaster.State(ctx); err != nil {
			log.Printf("failed to publish state after %s: %v", act.ActionType(), err)
			return
		}
	}
}

func (c *Client) sendMessage(msg model.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
