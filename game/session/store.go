package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserKey holds the authenticated user id for a logged-in session.
const UserKey = "user"

// Store is the session-scoped key/value collaborator. Values live under a
// long-lived per-browser session id and outlive individual connections,
// which is what lets a dropped player reconnect without re-claiming a name.
type Store interface {
	// Get returns the value for key under the session, and whether it was set.
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	// Set stores the value for key under the session.
	Set(ctx context.Context, sessionID, key, value string) error
	// Delete removes key from the session. Deleting an absent key is a no-op.
	Delete(ctx context.Context, sessionID, key string) error
}

// GameKey is the session key mapping a session to its claimed player in
// one specific game.
func GameKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-%s-player", gameID)
}
