package websocket

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/session"
	"github.com/namethat/namethat/validate"
)

// Identity is what the transport knows about a connection before any
// frame is exchanged: the session cookie and, if logged in, the account.
type Identity struct {
	SessionID string
	UserID    *uuid.UUID
}

// negotiate resolves the role a connection holds for a game. Three paths,
// tried in order, first match wins:
//
//  1. The authenticated user owns the game: game master, no frames needed.
//  2. The session already claimed a name in this game: reactivate that
//     player and return its role.
//  3. Ask the client for a display name and loop until an available one
//     is claimed.
func (c *Client) negotiate(ctx context.Context) (model.PlayerType, error) {
	game, err := c.games.Get(ctx, c.gameID)
	if err != nil {
		return model.PlayerType{}, err
	}

	if c.identity.UserID != nil && *c.identity.UserID == game.UserID {
		return model.GameMaster(), nil
	}

	if pt, ok, err := c.resumeSession(ctx); err != nil {
		return model.PlayerType{}, err
	} else if ok {
		return pt, nil
	}

	return c.claimDisplayName(ctx)
}

// resumeSession tries the reconnection fast path. A mapping that points
// at a player no longer in this game is corrupt state and fails loudly
// rather than being silently discarded.
func (c *Client) resumeSession(ctx context.Context) (model.PlayerType, bool, error) {
	raw, ok, err := c.sessions.Get(ctx, c.identity.SessionID, session.GameKey(c.gameID))
	if err != nil {
		return model.PlayerType{}, false, err
	}
	if !ok {
		return model.PlayerType{}, false, nil
	}

	playerID, err := uuid.Parse(raw)
	if err != nil {
		return model.PlayerType{}, false, apperr.Internal("malformed player id in session store", err)
	}

	player, err := c.games.GetPlayer(ctx, playerID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return model.PlayerType{}, false, apperr.Internal("session maps to a player that no longer exists", err)
	}
	if err != nil {
		return model.PlayerType{}, false, err
	}
	if player.GameID != c.gameID {
		return model.PlayerType{}, false, apperr.Internal("session maps to a player of another game", nil)
	}

	if _, err := c.games.MarkPlayerActive(ctx, player.ID); err != nil {
		return model.PlayerType{}, false, err
	}
	return player.PlayerType(), true, nil
}

// claimDisplayName runs the interactive join protocol: request a name,
// then loop over inbound frames until a playerJoin claims one that
// sticks. Frames that are not a playerJoin are ignored; a rejected name
// gets an unavailableDisplayName reply and another try. Concurrent
// claimants race at the store's unique constraint, so after inserting we
// verify the name is held by our id and treat anything else as a loss.
func (c *Client) claimDisplayName(ctx context.Context) (model.PlayerType, error) {
	if err := c.sendMessage(model.RequestDisplayName()); err != nil {
		return model.PlayerType{}, err
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return model.PlayerType{}, apperr.Internal("connection closed before joining", err)
		}

		act, err := model.ParseAction(frame)
		if err != nil {
			log.Printf("ignoring frame during name negotiation: %v", err)
			continue
		}
		join, ok := act.(*model.PlayerJoin)
		if !ok {
			continue
		}

		if err := validate.DisplayName(join.DisplayName); err != nil {
			log.Printf("rejecting display name %q: %v", join.DisplayName, err)
			if err := c.sendMessage(model.UnavailableDisplayName()); err != nil {
				return model.PlayerType{}, err
			}
			continue
		}

		// Re-fetch so the uniqueness check sees joins that happened while
		// we were waiting for this frame.
		game, err := c.games.Get(ctx, c.gameID)
		if err != nil {
			return model.PlayerType{}, err
		}
		if game.PlayerByName(join.DisplayName) != nil {
			if err := c.sendMessage(model.UnavailableDisplayName()); err != nil {
				return model.PlayerType{}, err
			}
			continue
		}

		playerID := uuid.New()
		isObserver := game.Status != model.StatusPending
		game, err = c.games.AddPlayer(ctx, c.gameID, playerID, join.DisplayName, isObserver)
		if err != nil {
			return model.PlayerType{}, err
		}

		claimed := game.PlayerByName(join.DisplayName)
		if claimed == nil || claimed.ID != playerID {
			// Another connection won the insert race.
			if err := c.sendMessage(model.UnavailableDisplayName()); err != nil {
				return model.PlayerType{}, err
			}
			continue
		}

		key := session.GameKey(c.gameID)
		if err := c.sessions.Set(ctx, c.identity.SessionID, key, playerID.String()); err != nil {
			return model.PlayerType{}, err
		}
		return claimed.PlayerType(), nil
	}
}
