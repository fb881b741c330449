package model

import (
	"encoding/json"

	"github.com/namethat/namethat/apperr"
)

// Message is an outbound frame to a client. It uses the same envelope
// convention as actions: {"type": ..., "message": {...}}, with the message
// key omitted for payload-less types.
type Message struct {
	Type    string `json:"type"`
	Message any    `json:"message,omitempty"`
}

type playerTypePayload struct {
	PlayerType PlayerType `json:"playerType"`
}

type notificationPayload struct {
	Message string `json:"message"`
}

type stateChangePayload struct {
	State GameState `json:"state"`
}

// RequestDisplayName asks an unidentified connection to claim a name.
func RequestDisplayName() Message {
	return Message{Type: "requestDisplayName"}
}

// UnavailableDisplayName rejects a claimed name and invites another attempt.
func UnavailableDisplayName() Message {
	return Message{Type: "unavailableDisplayName"}
}

// JoinSuccess confirms the resolved role to the joining connection.
func JoinSuccess(pt PlayerType) Message {
	return Message{Type: "joinSuccess", Message: playerTypePayload{PlayerType: pt}}
}

// NewPlayer announces a join to everyone in the game.
func NewPlayer(pt PlayerType) Message {
	return Message{Type: "newPlayer", Message: playerTypePayload{PlayerType: pt}}
}

// Notification carries a free-form informational message.
func Notification(text string) Message {
	return Message{Type: "notification", Message: notificationPayload{Message: text}}
}

// StateChange carries a full authoritative state snapshot.
func StateChange(state GameState) Message {
	return Message{Type: "stateChange", Message: stateChangePayload{State: state}}
}

// Encode renders the message for the wire.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, apperr.Internal("failed to encode message", err)
	}
	return data, nil
}
