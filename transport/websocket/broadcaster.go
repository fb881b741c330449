package websocket

import (
	"context"

	"github.com/google/uuid"

	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/store"
)

// Broadcaster publishes one game's updates through the hub. Every state
// publish re-reads the projection from the store, so subscribers always
// get a snapshot computed after the mutation, never an incremental diff.
type Broadcaster struct {
	hub    *Hub
	games  *store.Store
	gameID uuid.UUID
}

// NewBroadcaster binds a broadcaster to one game.
func NewBroadcaster(hub *Hub, games *store.Store, gameID uuid.UUID) *Broadcaster {
	return &Broadcaster{hub: hub, games: games, gameID: gameID}
}

// State publishes a fresh full state snapshot.
func (b *Broadcaster) State(ctx context.Context) error {
	state, err := b.games.GetState(ctx, b.gameID)
	if err != nil {
		return err
	}
	return b.send(model.StateChange(*state))
}

// NewPlayer announces a freshly joined participant.
func (b *Broadcaster) NewPlayer(pt model.PlayerType) error {
	return b.send(model.NewPlayer(pt))
}

// Notify publishes a free-form notification to the game.
func (b *Broadcaster) Notify(text string) error {
	return b.send(model.Notification(text))
}

func (b *Broadcaster) send(msg model.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	b.hub.Publish(Broadcast{GameID: b.gameID, Payload: data})
	return nil
}
