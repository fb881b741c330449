package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/db"
	"github.com/namethat/namethat/game/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return New(conn)
}

func seedUser(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, name, password_hash)
		VALUES (?, ?, ?, ?)
	`, id.String(), id.String()+"@example.com", "Test Owner", "x")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

func seedGame(t *testing.T, s *Store, images ...string) *model.Game {
	t.Helper()
	game, err := s.Insert(context.Background(), model.NewGame{
		UserID:    seedUser(t, s),
		Name:      "Friday Night",
		ImageURLs: images,
	})
	if err != nil {
		t.Fatalf("failed to seed game: %v", err)
	}
	return game
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/1.png", "https://img.example/2.png")

	if game.Status != model.StatusPending {
		t.Errorf("new game status = %q, want pending", game.Status)
	}
	if len(game.ImageURLs) != 2 || game.ImageURLs[0] != "https://img.example/1.png" {
		t.Errorf("image urls did not round-trip: %v", game.ImageURLs)
	}
	if len(game.Rounds) != 0 || len(game.Players) != 0 {
		t.Errorf("new game should have no rounds or players, got %d/%d", len(game.Rounds), len(game.Players))
	}
	if game.Scores == nil || len(game.Scores) != 0 {
		t.Errorf("new game scores = %v, want empty map", game.Scores)
	}

	got, err := s.Get(ctx, game.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Name != "Friday Night" {
		t.Errorf("Get() name = %q", got.Name)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), uuid.New())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Get(unknown) kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedGame(t, s, "https://img.example/a.png")
	second := seedGame(t, s, "https://img.example/b.png")
	if _, err := s.Start(ctx, second.ID); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	all, err := s.List(ctx, model.GameFilter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() returned %d games, want 2", len(all))
	}

	started := model.StatusStarted
	byStatus, err := s.List(ctx, model.GameFilter{Status: &started})
	if err != nil {
		t.Fatalf("List(status) error: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != second.ID {
		t.Errorf("List(started) = %v, want only the started game", byStatus)
	}

	byOwner, err := s.List(ctx, model.GameFilter{UserID: &first.UserID})
	if err != nil {
		t.Fatalf("List(user) error: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].ID != first.ID {
		t.Errorf("List(owner) = %v, want only the first game", byOwner)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png")

	updated, err := s.Update(ctx, game.ID, model.UpdateGame{
		Name:      "Saturday Night",
		ImageURLs: []string{"https://img.example/x.png"},
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Name != "Saturday Night" || len(updated.ImageURLs) != 1 {
		t.Errorf("Update() = %q %v", updated.Name, updated.ImageURLs)
	}

	if err := s.Delete(ctx, game.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, game.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Get after delete kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestAddPlayerNameConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png")

	withAlice, err := s.AddPlayer(ctx, game.ID, uuid.New(), "alice", false)
	if err != nil {
		t.Fatalf("AddPlayer() error: %v", err)
	}
	alice := withAlice.PlayerByName("alice")
	if alice == nil {
		t.Fatal("alice missing after AddPlayer")
	}

	// A second claim of the same name is silently ignored: the aggregate
	// still holds the first claimant.
	again, err := s.AddPlayer(ctx, game.ID, uuid.New(), "alice", false)
	if err != nil {
		t.Fatalf("AddPlayer(duplicate) error: %v", err)
	}
	if len(again.Players) != 1 {
		t.Fatalf("duplicate claim created a second player: %d players", len(again.Players))
	}
	if again.PlayerByName("alice").ID != alice.ID {
		t.Error("duplicate claim replaced the original player")
	}
}

func TestPlayerActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png")
	game, _ = s.AddPlayer(ctx, game.ID, uuid.New(), "bob", false)
	bob := game.PlayerByName("bob")
	if !bob.Active {
		t.Fatal("freshly added player should be active")
	}

	game, err := s.MarkPlayerInactive(ctx, bob.ID)
	if err != nil {
		t.Fatalf("MarkPlayerInactive() error: %v", err)
	}
	if game.PlayerByName("bob").Active {
		t.Error("player still active after MarkPlayerInactive")
	}

	game, err = s.MarkPlayerActive(ctx, bob.ID)
	if err != nil {
		t.Fatalf("MarkPlayerActive() error: %v", err)
	}
	if !game.PlayerByName("bob").Active {
		t.Error("player still inactive after MarkPlayerActive")
	}

	if _, err := s.MarkPlayerActive(ctx, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("MarkPlayerActive(unknown) kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestStartOnlyMovesForward(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png")

	game, err := s.Start(ctx, game.ID)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if game.Status != model.StatusStarted {
		t.Fatalf("status = %q after Start, want started", game.Status)
	}

	if _, err := s.End(ctx, game.ID); err != nil {
		t.Fatalf("End() error: %v", err)
	}

	// Start on a finished game must not rewind the status.
	game, err = s.Start(ctx, game.ID)
	if err != nil {
		t.Fatalf("Start(finished) error: %v", err)
	}
	if game.Status != model.StatusFinished {
		t.Errorf("status = %q after Start on finished game, want finished", game.Status)
	}
}

func TestRoundAndAnswerFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png", "https://img.example/b.png")
	game, _ = s.AddPlayer(ctx, game.ID, uuid.New(), "alice", false)
	alice := game.PlayerByName("alice")

	game, err := s.AddRound(ctx, model.NewRound{
		GameID:      game.ID,
		RoundNumber: 1,
		ImageURL:    game.ImageURLs[0],
	})
	if err != nil {
		t.Fatalf("AddRound() error: %v", err)
	}
	round := game.CurrentRound()
	if round == nil || round.RoundNumber != 1 {
		t.Fatalf("CurrentRound() = %v, want round 1", round)
	}

	game, err = s.AddAnswer(ctx, model.NewAnswer{
		PlayerID: alice.ID,
		RoundID:  round.ID,
		Value:    "a very good guess",
	})
	if err != nil {
		t.Fatalf("AddAnswer() error: %v", err)
	}
	answers := game.CurrentRound().Answers
	if len(answers) != 1 || answers[0].Value != "a very good guess" {
		t.Fatalf("answers = %v", answers)
	}
	answer := answers[0]

	// An answer from a player of another game is rejected.
	other := seedGame(t, s, "https://img.example/z.png")
	other, _ = s.AddPlayer(ctx, other.ID, uuid.New(), "mallory", false)
	_, err = s.AddAnswer(ctx, model.NewAnswer{
		PlayerID: other.PlayerByName("mallory").ID,
		RoundID:  round.ID,
		Value:    "sneaky",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("cross-game answer kind = %v, want validation", apperr.KindOf(err))
	}

	game, err = s.IncrementLike(ctx, answer.ID)
	if err != nil {
		t.Fatalf("IncrementLike() error: %v", err)
	}
	if got := game.CurrentRound().Answers[0].Likes; got != 1 {
		t.Errorf("likes = %d, want 1", got)
	}

	game, err = s.CloseAnswers(ctx, round.ID)
	if err != nil {
		t.Fatalf("CloseAnswers() error: %v", err)
	}
	if !game.CurrentRound().AnswersClosed {
		t.Error("answers still open after CloseAnswers")
	}

	game, err = s.ShowAnswer(ctx, answer.ID)
	if err != nil {
		t.Fatalf("ShowAnswer() error: %v", err)
	}
	if !game.CurrentRound().Answers[0].Shown {
		t.Error("answer still hidden after ShowAnswer")
	}

	game, err = s.EndRound(ctx, round.ID, alice.ID)
	if err != nil {
		t.Fatalf("EndRound() error: %v", err)
	}
	if w := game.CurrentRound().RoundWinner; w == nil || *w != alice.ID {
		t.Errorf("round winner = %v, want alice", w)
	}

	game, err = s.IncrementScore(ctx, alice.ID)
	if err != nil {
		t.Fatalf("IncrementScore() error: %v", err)
	}
	if game.Scores["alice"] != 1 {
		t.Errorf("alice score = %d, want 1", game.Scores["alice"])
	}
}

func TestEndPicksWinner(t *testing.T) {
	type playerSeed struct {
		name     string
		observer bool
		score    int
	}
	tests := []struct {
		name    string
		players []playerSeed
		winner  string // empty means no winner
	}{
		{
			name: "highest score wins",
			players: []playerSeed{
				{name: "alice", score: 1},
				{name: "bob", score: 3},
				{name: "carol", score: 2},
			},
			winner: "bob",
		},
		{
			name: "tie goes to first joiner",
			players: []playerSeed{
				{name: "alice", score: 2},
				{name: "bob", score: 2},
			},
			winner: "alice",
		},
		{
			name: "all zero still crowns the first player",
			players: []playerSeed{
				{name: "alice"},
				{name: "bob"},
			},
			winner: "alice",
		},
		{
			name: "observers cannot win",
			players: []playerSeed{
				{name: "watcher", observer: true},
				{name: "bob", score: 0},
			},
			winner: "bob",
		},
		{
			name:   "no players means no winner",
			winner: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			game := seedGame(t, s, "https://img.example/a.png")

			for _, p := range tt.players {
				game, _ = s.AddPlayer(ctx, game.ID, uuid.New(), p.name, p.observer)
				id := game.PlayerByName(p.name).ID
				for i := 0; i < p.score; i++ {
					if _, err := s.IncrementScore(ctx, id); err != nil {
						t.Fatalf("IncrementScore() error: %v", err)
					}
				}
			}

			game, err := s.End(ctx, game.ID)
			if err != nil {
				t.Fatalf("End() error: %v", err)
			}
			if game.Status != model.StatusFinished {
				t.Errorf("status = %q, want finished", game.Status)
			}

			if tt.winner == "" {
				if game.Winner != nil {
					t.Errorf("winner = %v, want none", game.Winner)
				}
				return
			}
			if game.Winner == nil {
				t.Fatal("no winner recorded")
			}
			if got := game.PlayerByID(*game.Winner); got == nil || got.Username != tt.winner {
				t.Errorf("winner = %v, want %q", got, tt.winner)
			}
		})
	}
}

func TestGetState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png", "https://img.example/b.png")

	state, err := s.GetState(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.RoundID != nil || state.RoundNumber != nil || state.ImageURL != nil {
		t.Error("round fields should be unset before the first round")
	}
	if !state.LastRound {
		t.Error("LastRound should be true with no round to advance from")
	}
	if state.Answers == nil || len(state.Answers) != 0 {
		t.Errorf("answers = %v, want empty slice", state.Answers)
	}

	game, _ = s.AddPlayer(ctx, game.ID, uuid.New(), "alice", false)
	alice := game.PlayerByName("alice")
	game, _ = s.Start(ctx, game.ID)
	game, _ = s.AddRound(ctx, model.NewRound{GameID: game.ID, RoundNumber: 1, ImageURL: game.ImageURLs[0]})
	round := game.CurrentRound()

	state, err = s.GetState(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.RoundID == nil || *state.RoundID != round.ID {
		t.Errorf("RoundID = %v, want %v", state.RoundID, round.ID)
	}
	if state.RoundNumber == nil || *state.RoundNumber != 1 {
		t.Errorf("RoundNumber = %v, want 1", state.RoundNumber)
	}
	if state.ImageURL == nil || *state.ImageURL != "https://img.example/a.png" {
		t.Errorf("ImageURL = %v", state.ImageURL)
	}
	if state.LastRound {
		t.Error("round 1 of 2 reported as last round")
	}

	game, _ = s.AddRound(ctx, model.NewRound{GameID: game.ID, RoundNumber: 2, ImageURL: game.ImageURLs[1]})
	secondRound := game.CurrentRound()

	state, _ = s.GetState(ctx, game.ID)
	if !state.LastRound {
		t.Error("round 2 of 2 not reported as last round")
	}
	if *state.RoundID != secondRound.ID {
		t.Error("GetState did not project the latest round")
	}

	// Winners are resolved to full player records.
	s.EndRound(ctx, secondRound.ID, alice.ID)
	s.IncrementScore(ctx, alice.ID)
	s.End(ctx, game.ID)

	state, _ = s.GetState(ctx, game.ID)
	if state.RoundWinner == nil || state.RoundWinner.Username != "alice" {
		t.Errorf("RoundWinner = %v, want alice", state.RoundWinner)
	}
	if state.GameWinner == nil || state.GameWinner.Username != "alice" {
		t.Errorf("GameWinner = %v, want alice", state.GameWinner)
	}
	if state.Status != model.StatusFinished {
		t.Errorf("status = %q, want finished", state.Status)
	}
}

func TestReverseLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := seedGame(t, s, "https://img.example/a.png")
	game, _ = s.AddPlayer(ctx, game.ID, uuid.New(), "alice", false)
	alice := game.PlayerByName("alice")
	game, _ = s.AddRound(ctx, model.NewRound{GameID: game.ID, RoundNumber: 1, ImageURL: game.ImageURLs[0]})
	round := game.CurrentRound()
	game, _ = s.AddAnswer(ctx, model.NewAnswer{PlayerID: alice.ID, RoundID: round.ID, Value: "guess"})
	answer := game.CurrentRound().Answers[0]

	byRound, err := s.GetByRoundID(ctx, round.ID)
	if err != nil || byRound.ID != game.ID {
		t.Errorf("GetByRoundID() = %v, %v", byRound, err)
	}
	byAnswer, err := s.GetByAnswerID(ctx, answer.ID)
	if err != nil || byAnswer.ID != game.ID {
		t.Errorf("GetByAnswerID() = %v, %v", byAnswer, err)
	}

	if _, err := s.GetByRoundID(ctx, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("GetByRoundID(unknown) kind = %v, want not found", apperr.KindOf(err))
	}
	if _, err := s.GetByAnswerID(ctx, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("GetByAnswerID(unknown) kind = %v, want not found", apperr.KindOf(err))
	}
}
