package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestPlayerTypeDerivation(t *testing.T) {
	id := uuid.New()

	player := Player{ID: id, Username: "Alice", IsObserver: false}
	pt := player.PlayerType()
	if !pt.IsPlayer() {
		t.Errorf("non-observer player derived kind %q, want player", pt.Kind)
	}
	if pt.DisplayName != "Alice" {
		t.Errorf("display name = %q, want Alice", pt.DisplayName)
	}

	observer := Player{ID: id, Username: "Bob", IsObserver: true}
	pt = observer.PlayerType()
	if !pt.IsObserver() {
		t.Errorf("observer player derived kind %q, want observer", pt.Kind)
	}
}

func TestPlayerTypePlayerID(t *testing.T) {
	if _, ok := GameMaster().PlayerID(); ok {
		t.Error("game master should not carry a player id")
	}

	id := uuid.New()
	pt := Player{ID: id, Username: "Alice"}.PlayerType()
	got, ok := pt.PlayerID()
	if !ok || got != id {
		t.Errorf("PlayerID() = %v, %v; want %v, true", got, ok, id)
	}
}

func TestPlayerTypeJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pt   PlayerType
	}{
		{"game master", GameMaster()},
		{"player", PlayerType{Kind: KindPlayer, ID: uuid.New(), DisplayName: "Alice"}},
		{"observer", PlayerType{Kind: KindObserver, ID: uuid.New(), DisplayName: "Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.pt)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var got PlayerType
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if got != tt.pt {
				t.Errorf("round trip = %+v, want %+v", got, tt.pt)
			}
		})
	}
}

func TestPlayerTypeJSONShape(t *testing.T) {
	data, err := json.Marshal(GameMaster())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"gameMaster"}` {
		t.Errorf("game master JSON = %s", data)
	}

	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	data, err = json.Marshal(PlayerType{Kind: KindPlayer, ID: id, DisplayName: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"player","player":{"id":"11111111-2222-3333-4444-555555555555","displayName":"Alice"}}`
	if string(data) != want {
		t.Errorf("player JSON = %s, want %s", data, want)
	}
}

func TestPlayerTypeUnmarshalRejectsUnknown(t *testing.T) {
	var pt PlayerType
	if err := json.Unmarshal([]byte(`{"type":"wizard"}`), &pt); err == nil {
		t.Error("unknown kind should fail to unmarshal")
	}
	if err := json.Unmarshal([]byte(`{"type":"player"}`), &pt); err == nil {
		t.Error("player kind without player object should fail to unmarshal")
	}
}

func TestGameLookups(t *testing.T) {
	roundID := uuid.New()
	playerID := uuid.New()
	game := Game{
		Players: []Player{
			{ID: playerID, Username: "Alice"},
			{ID: uuid.New(), Username: "Bob"},
		},
		Rounds: []Round{
			{ID: uuid.New(), RoundNumber: 1},
			{ID: roundID, RoundNumber: 2},
		},
	}

	if p := game.PlayerByID(playerID); p == nil || p.Username != "Alice" {
		t.Errorf("PlayerByID() = %+v, want Alice", p)
	}
	if p := game.PlayerByName("Bob"); p == nil || p.ID == playerID {
		t.Errorf("PlayerByName(Bob) = %+v", p)
	}
	if p := game.PlayerByName("bob"); p != nil {
		t.Error("username lookup should be case-sensitive")
	}
	if r := game.RoundByID(roundID); r == nil || r.RoundNumber != 2 {
		t.Errorf("RoundByID() = %+v, want round 2", r)
	}
	if r := game.CurrentRound(); r == nil || r.ID != roundID {
		t.Errorf("CurrentRound() = %+v, want latest round", r)
	}

	empty := Game{}
	if empty.CurrentRound() != nil {
		t.Error("CurrentRound() on a game with no rounds should be nil")
	}
	if empty.PlayerByID(playerID) != nil {
		t.Error("PlayerByID() on an empty game should be nil")
	}
}
