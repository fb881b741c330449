// Package model holds the domain types, the wire-level action and message
// envelopes, and the role classification used for authorization.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// GameStatus tracks the lifecycle of a game. It only moves forward:
// pending -> started -> finished.
type GameStatus string

const (
	StatusPending  GameStatus = "pending"
	StatusStarted  GameStatus = "started"
	StatusFinished GameStatus = "finished"
)

// Game is the fully assembled aggregate: the game row plus its rounds,
// players, answers, and the derived score map.
type Game struct {
	ID uuid.UUID `json:"id"`
	// UserID identifies the owner, who acts as game master.
	UserID    uuid.UUID  `json:"userId"`
	Name      string     `json:"name"`
	ImageURLs []string   `json:"imageUrls"`
	Rounds    []Round    `json:"rounds"`
	Players   []Player   `json:"players"`
	Scores    map[string]int `json:"scores"`
	Status    GameStatus `json:"status"`
	Winner    *uuid.UUID `json:"winner"`
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(id uuid.UUID) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// PlayerByName returns the player with the given username, or nil.
// Usernames are case-sensitive.
func (g *Game) PlayerByName(username string) *Player {
	for i := range g.Players {
		if g.Players[i].Username == username {
			return &g.Players[i]
		}
	}
	return nil
}

// RoundByID returns the round with the given id, or nil.
func (g *Game) RoundByID(id uuid.UUID) *Round {
	for i := range g.Rounds {
		if g.Rounds[i].ID == id {
			return &g.Rounds[i]
		}
	}
	return nil
}

// CurrentRound returns the latest round, or nil if none has started.
func (g *Game) CurrentRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return &g.Rounds[len(g.Rounds)-1]
}

// Player is a participant in one game. Usernames are chosen by the
// participant and are unique per game.
type Player struct {
	ID       uuid.UUID `json:"id"`
	GameID   uuid.UUID `json:"gameId"`
	Username string    `json:"username"`
	Active   bool      `json:"active"`
	// IsObserver is fixed at creation: participants joining a game that has
	// already started can only watch.
	IsObserver bool `json:"isObserver"`
	Score      int  `json:"score"`
}

// PlayerType derives the connection role from the player record.
func (p Player) PlayerType() PlayerType {
	kind := KindPlayer
	if p.IsObserver {
		kind = KindObserver
	}
	return PlayerType{Kind: kind, ID: p.ID, DisplayName: p.Username}
}

// Round is one image-guessing cycle within a game. The image URL is copied
// from the game at round-start time so later edits to the game cannot
// change a round that already ran.
type Round struct {
	ID            uuid.UUID  `json:"id"`
	GameID        uuid.UUID  `json:"gameId"`
	RoundNumber   int        `json:"roundNumber"`
	ImageURL      string     `json:"imageUrl"`
	AnswersClosed bool       `json:"answersClosed"`
	Answers       []Answer   `json:"answers"`
	RoundWinner   *uuid.UUID `json:"roundWinner"`
}

// Answer is a single player submission within a round. Shown controls the
// game master's reveal-one-at-a-time flow.
type Answer struct {
	ID       uuid.UUID `json:"id"`
	RoundID  uuid.UUID `json:"roundId"`
	PlayerID uuid.UUID `json:"playerId"`
	Value    string    `json:"value"`
	Likes    int       `json:"likes"`
	Shown    bool      `json:"shown"`
}

// GameState is the projection broadcast to clients after every mutation.
// Clients treat each snapshot as authoritative and replace prior state.
type GameState struct {
	GameID uuid.UUID `json:"gameId"`
	Name   string    `json:"name"`
	// RoundID and the other round fields are unset until a round starts.
	RoundID       *uuid.UUID     `json:"roundId"`
	RoundNumber   *int           `json:"roundNumber"`
	ImageURL      *string        `json:"imageUrl"`
	LastRound     bool           `json:"lastRound"`
	AnswersClosed bool           `json:"answersClosed"`
	Answers       []Answer       `json:"answers"`
	Status        GameStatus     `json:"status"`
	Players       []Player       `json:"players"`
	Scores        map[string]int `json:"scores"`
	RoundWinner   *Player        `json:"roundWinner"`
	GameWinner    *Player        `json:"gameWinner"`
}

// PlayerKind discriminates the three connection roles.
type PlayerKind string

const (
	KindGameMaster PlayerKind = "gameMaster"
	KindPlayer     PlayerKind = "player"
	KindObserver   PlayerKind = "observer"
)

// PlayerType is the role a connection holds for one game. It is derived at
// connection time and never persisted. The game master carries no player
// record, so ID and DisplayName are only set for players and observers.
type PlayerType struct {
	Kind        PlayerKind
	ID          uuid.UUID
	DisplayName string
}

// GameMaster returns the game master role.
func GameMaster() PlayerType {
	return PlayerType{Kind: KindGameMaster}
}

// IsGameMaster reports whether this role is the game master.
func (pt PlayerType) IsGameMaster() bool { return pt.Kind == KindGameMaster }

// IsPlayer reports whether this role may submit answers.
func (pt PlayerType) IsPlayer() bool { return pt.Kind == KindPlayer }

// IsObserver reports whether this role is read-only.
func (pt PlayerType) IsObserver() bool { return pt.Kind == KindObserver }

// PlayerID returns the backing player id, or false for the game master.
func (pt PlayerType) PlayerID() (uuid.UUID, bool) {
	if pt.Kind == KindGameMaster {
		return uuid.UUID{}, false
	}
	return pt.ID, true
}

type playerTypeJSON struct {
	Type   PlayerKind       `json:"type"`
	Player *playerTypeInner `json:"player,omitempty"`
}

type playerTypeInner struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

// MarshalJSON encodes the role as a tagged object: the game master is
// {"type":"gameMaster"}, the other roles carry a nested player object.
func (pt PlayerType) MarshalJSON() ([]byte, error) {
	out := playerTypeJSON{Type: pt.Kind}
	if pt.Kind == KindPlayer || pt.Kind == KindObserver {
		out.Player = &playerTypeInner{ID: pt.ID, DisplayName: pt.DisplayName}
	}
	return json.Marshal(out)
}

func (pt *PlayerType) UnmarshalJSON(data []byte) error {
	var in playerTypeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.Type {
	case KindGameMaster:
		*pt = PlayerType{Kind: KindGameMaster}
	case KindPlayer, KindObserver:
		if in.Player == nil {
			return fmt.Errorf("player type %q is missing its player object", in.Type)
		}
		*pt = PlayerType{Kind: in.Type, ID: in.Player.ID, DisplayName: in.Player.DisplayName}
	default:
		return fmt.Errorf("unknown player type %q", in.Type)
	}
	return nil
}

// NewGame carries the fields needed to create a game.
type NewGame struct {
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	ImageURLs []string  `json:"imageUrls"`
}

// UpdateGame carries the mutable fields of a game.
type UpdateGame struct {
	Name      string   `json:"name"`
	ImageURLs []string `json:"imageUrls"`
}

// GameFilter narrows a game listing.
type GameFilter struct {
	UserID *uuid.UUID
	Status *GameStatus
}

// NewRound carries the fields needed to start a round.
type NewRound struct {
	GameID      uuid.UUID `json:"gameId"`
	RoundNumber int       `json:"roundNumber"`
	ImageURL    string    `json:"imageUrl"`
}

// NewAnswer carries the fields needed to record an answer.
type NewAnswer struct {
	PlayerID uuid.UUID `json:"playerId"`
	RoundID  uuid.UUID `json:"roundId"`
	Value    string    `json:"value"`
}
