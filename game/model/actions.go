package model

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/namethat/namethat/apperr"
)

// Action is a client request to modify a game. Actions arrive as JSON
// envelopes tagged by a "type" field with the payload nested under
// "message", e.g. {"type":"startRound","message":{"round":1}}.
type Action interface {
	ActionType() string
}

// PlayerJoin claims a display name during the join protocol. It is handled
// exclusively by identity negotiation and is a no-op for the action service.
type PlayerJoin struct {
	DisplayName string `json:"displayName"`
}

// StartRound begins round N, copying image N from the game. Starting round 1
// also moves the game from pending to started.
type StartRound struct {
	Round int `json:"round"`
}

// UserAnswer submits an answer to an open round.
type UserAnswer struct {
	RoundID uuid.UUID `json:"roundId"`
	Answer  string    `json:"answer"`
}

// CloseAnswers stops further submissions for a round.
type CloseAnswers struct {
	RoundID uuid.UUID `json:"roundId"`
}

// RevealAnswer marks one answer as shown.
type RevealAnswer struct {
	AnswerID uuid.UUID `json:"answerId"`
}

// LikeAnswer increments an answer's like count. Any connection may like.
type LikeAnswer struct {
	AnswerID uuid.UUID `json:"answerId"`
}

// EndRound picks the round winner and awards them a point.
type EndRound struct {
	RoundID uuid.UUID `json:"roundId"`
	Winner  uuid.UUID `json:"winner"`
}

// EndGame finishes the game and computes the overall winner.
type EndGame struct{}

func (PlayerJoin) ActionType() string   { return "playerJoin" }
func (StartRound) ActionType() string   { return "startRound" }
func (UserAnswer) ActionType() string   { return "userAnswer" }
func (CloseAnswers) ActionType() string { return "closeAnswers" }
func (RevealAnswer) ActionType() string { return "revealAnswer" }
func (LikeAnswer) ActionType() string   { return "likeAnswer" }
func (EndRound) ActionType() string     { return "endRound" }
func (EndGame) ActionType() string      { return "endGame" }

type actionEnvelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// ParseAction decodes a wire frame into a typed action. Malformed frames
// and unknown action types yield validation errors so processing loops can
// reject the frame without dying.
func ParseAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.Validation("malformed action frame: %v", err)
	}

	decode := func(v Action) (Action, error) {
		if len(env.Message) == 0 {
			return nil, apperr.Validation("action %q is missing its payload", env.Type)
		}
		if err := json.Unmarshal(env.Message, v); err != nil {
			return nil, apperr.Validation("malformed %q payload: %v", env.Type, err)
		}
		return v, nil
	}

	switch env.Type {
	case "playerJoin":
		return decode(&PlayerJoin{})
	case "startRound":
		return decode(&StartRound{})
	case "userAnswer":
		return decode(&UserAnswer{})
	case "closeAnswers":
		return decode(&CloseAnswers{})
	case "revealAnswer":
		return decode(&RevealAnswer{})
	case "likeAnswer":
		return decode(&LikeAnswer{})
	case "endRound":
		return decode(&EndRound{})
	case "endGame":
		return &EndGame{}, nil
	default:
		return nil, apperr.Validation("unknown action type %q", env.Type)
	}
}

// EncodeAction renders an action in the wire envelope. EndGame carries no
// payload, matching what clients send.
func EncodeAction(a Action) ([]byte, error) {
	env := struct {
		Type    string `json:"type"`
		Message Action `json:"message,omitempty"`
	}{Type: a.ActionType()}

	if _, ok := a.(*EndGame); !ok {
		if _, ok := a.(EndGame); !ok {
			env.Message = a
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, apperr.Internal("failed to encode action", err)
	}
	return data, nil
}
