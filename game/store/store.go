package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/game/model"
)

// Store persists game aggregates. Every mutator re-reads and returns the
// full aggregate so callers never work from a stale in-memory copy.
type Store struct {
	db *sql.DB
}

// New creates a game store on the given database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// -----------------------------------------------------------------------
// Basic CRUD
// -----------------------------------------------------------------------

// Insert creates a game in pending status and returns the aggregate.
func (s *Store) Insert(ctx context.Context, newGame model.NewGame) (*model.Game, error) {
	images, err := json.Marshal(newGame.ImageURLs)
	if err != nil {
		return nil, apperr.Internal("failed to encode image urls", err)
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, user_id, name, image_urls)
		VALUES (?, ?, ?, ?)
	`, id.String(), newGame.UserID.String(), newGame.Name, string(images))
	if err != nil {
		return nil, apperr.Internal("failed to insert game", err)
	}

	return s.Get(ctx, id)
}

// Get assembles the full aggregate: game row, rounds with their answers,
// players, and the derived score map.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.Game, error) {
	game, err := s.getRow(ctx, id)
	if err != nil {
		return nil, err
	}

	game.Rounds, err = s.roundsForGame(ctx, id)
	if err != nil {
		return nil, err
	}
	game.Players, err = s.playersForGame(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := s.answersForGame(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		if round := game.RoundByID(a.RoundID); round != nil {
			round.Answers = append(round.Answers, a)
		}
	}

	game.Scores = make(map[string]int)
	for _, p := range game.Players {
		if !p.IsObserver {
			game.Scores[p.Username] = p.Score
		}
	}

	return game, nil
}

// List returns the aggregates matching the filter.
func (s *Store) List(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	query := `SELECT id FROM games WHERE 1=1`
	var args []any
	if filter.UserID != nil {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID.String())
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("failed to list games", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperr.Internal("failed to read game id", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.Internal("malformed game id in database", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list games", err)
	}

	games := make([]*model.Game, 0, len(ids))
	for _, id := range ids {
		game, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, nil
}

// Update replaces a game's name and image list.
func (s *Store) Update(ctx context.Context, id uuid.UUID, update model.UpdateGame) (*model.Game, error) {
	images, err := json.Marshal(update.ImageURLs)
	if err != nil {
		return nil, apperr.Internal("failed to encode image urls", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE games
		SET name = ?, image_urls = ?
		WHERE id = ?
	`, update.Name, string(images), id.String())
	if err != nil {
		return nil, apperr.Internal("failed to update game", err)
	}

	return s.Get(ctx, id)
}

// Delete removes a game and, via cascading constraints, everything under it.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id.String())
	if err != nil {
		return apperr.Internal("failed to delete game", err)
	}
	return nil
}

// GetState projects the aggregate into the client-facing snapshot.
func (s *Store) GetState(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	game, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	state := &model.GameState{
		GameID:  game.ID,
		Name:    game.Name,
		Status:  game.Status,
		Players: game.Players,
		Scores:  game.Scores,
		Answers: []model.Answer{},
		// No round yet means there is no next round to move to either.
		LastRound: true,
	}

	if round := game.CurrentRound(); round != nil {
		state.RoundID = &round.ID
		state.RoundNumber = &round.RoundNumber
		state.ImageURL = &round.ImageURL
		state.AnswersClosed = round.AnswersClosed
		state.LastRound = round.RoundNumber == len(game.ImageURLs)
		if round.Answers != nil {
			state.Answers = round.Answers
		}
		if round.RoundWinner != nil {
			state.RoundWinner = game.PlayerByID(*round.RoundWinner)
		}
	}

	if game.Winner != nil {
		state.GameWinner = game.PlayerByID(*game.Winner)
	}

	return state, nil
}

// -----------------------------------------------------------------------
// Players
// -----------------------------------------------------------------------

// GetPlayer looks a player up by id.
func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, username, active, is_observer, score
		FROM players
		WHERE id = ?
	`, id.String())

	player, err := scanPlayer(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("player not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to read player", err)
	}
	return player, nil
}

// AddPlayer inserts a player into a game under a caller-supplied id. A
// username collision inside the store is resolved by the unique
// constraint: the insert becomes a no-op and the returned aggregate shows
// the winning claimant, so callers detect a lost race by checking whether
// the player holding the name carries their id.
func (s *Store) AddPlayer(ctx context.Context, gameID, playerID uuid.UUID, username string, isObserver bool) (*model.Game, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, game_id, username, active, is_observer)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT DO NOTHING
	`, playerID.String(), gameID.String(), username, isObserver)
	if err != nil {
		return nil, apperr.Internal("failed to insert player", err)
	}

	return s.Get(ctx, gameID)
}

// MarkPlayerActive flags a player as connected.
func (s *Store) MarkPlayerActive(ctx context.Context, id uuid.UUID) (*model.Game, error) {
	return s.setPlayerActive(ctx, id, true)
}

// MarkPlayerInactive flags a player as disconnected.
func (s *Store) MarkPlayerInactive(ctx context.Context, id uuid.UUID) (*model.Game, error) {
	return s.setPlayerActive(ctx, id, false)
}

func (s *Store) setPlayerActive(ctx context.Context, id uuid.UUID, active bool) (*model.Game, error) {
	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE players SET active = ? WHERE id = ?
	`, active, id.String())
	if err != nil {
		return nil, apperr.Internal("failed to update player activity", err)
	}

	return s.Get(ctx, player.GameID)
}

// IncrementScore awards a player one point.
func (s *Store) IncrementScore(ctx context.Context, playerID uuid.UUID) (*model.Game, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE players SET score = score + 1 WHERE id = ?
	`, playerID.String())
	if err != nil {
		return nil, apperr.Internal("failed to increment score", err)
	}

	return s.Get(ctx, player.GameID)
}

// -----------------------------------------------------------------------
// Game lifecycle
// -----------------------------------------------------------------------

// Start moves a game from pending to started. Calling it on a game that
// already advanced is a no-op: status never moves backward.
func (s *Store) Start(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE games SET status = 'started'
		WHERE id = ? AND status = 'pending'
	`, gameID.String())
	if err != nil {
		return nil, apperr.Internal("failed to start game", err)
	}

	return s.Get(ctx, gameID)
}

// AddRound creates a round for a game.
func (s *Store) AddRound(ctx context.Context, round model.NewRound) (*model.Game, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (id, game_id, round_number, image_url)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), round.GameID.String(), round.RoundNumber, round.ImageURL)
	if err != nil {
		return nil, apperr.Internal("failed to insert round", err)
	}

	return s.Get(ctx, round.GameID)
}

// AddAnswer records an answer, verifying the author belongs to the
// round's game.
func (s *Store) AddAnswer(ctx context.Context, answer model.NewAnswer) (*model.Game, error) {
	game, err := s.GetByRoundID(ctx, answer.RoundID)
	if err != nil {
		return nil, err
	}
	if game.PlayerByID(answer.PlayerID) == nil {
		return nil, apperr.Validation("player is not part of this game")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO answers (id, round_id, player_id, value)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), answer.RoundID.String(), answer.PlayerID.String(), answer.Value)
	if err != nil {
		return nil, apperr.Internal("failed to insert answer", err)
	}

	return s.Get(ctx, game.ID)
}

// IncrementLike bumps an answer's like count.
func (s *Store) IncrementLike(ctx context.Context, answerID uuid.UUID) (*model.Game, error) {
	game, err := s.GetByAnswerID(ctx, answerID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE answers SET likes = likes + 1 WHERE id = ?
	`, answerID.String())
	if err != nil {
		return nil, apperr.Internal("failed to increment likes", err)
	}

	return s.Get(ctx, game.ID)
}

// CloseAnswers stops submissions for a round.
func (s *Store) CloseAnswers(ctx context.Context, roundID uuid.UUID) (*model.Game, error) {
	game, err := s.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE rounds SET answers_closed = 1 WHERE id = ?
	`, roundID.String())
	if err != nil {
		return nil, apperr.Internal("failed to close answers", err)
	}

	return s.Get(ctx, game.ID)
}

// ShowAnswer marks an answer as revealed.
func (s *Store) ShowAnswer(ctx context.Context, answerID uuid.UUID) (*model.Game, error) {
	game, err := s.GetByAnswerID(ctx, answerID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE answers SET shown = 1 WHERE id = ?
	`, answerID.String())
	if err != nil {
		return nil, apperr.Internal("failed to show answer", err)
	}

	return s.Get(ctx, game.ID)
}

// EndRound records the round winner.
func (s *Store) EndRound(ctx context.Context, roundID, winner uuid.UUID) (*model.Game, error) {
	game, err := s.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE rounds SET round_winner = ? WHERE id = ?
	`, winner.String(), roundID.String())
	if err != nil {
		return nil, apperr.Internal("failed to end round", err)
	}

	return s.Get(ctx, game.ID)
}

// End finishes the game and records the overall winner: the first
// non-observer player, in join order, holding the highest score. When
// every score is zero that is still the first player; a game with no
// players finishes without a winner.
func (s *Store) End(ctx context.Context, gameID uuid.UUID) (*model.Game, error) {
	game, err := s.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	best := -1
	var winner *uuid.UUID
	for i := range game.Players {
		p := game.Players[i]
		if p.IsObserver {
			continue
		}
		if p.Score > best {
			best = p.Score
			winner = &p.ID
		}
	}

	var winnerValue any
	if winner != nil {
		winnerValue = winner.String()
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE games SET status = 'finished', winner = ? WHERE id = ?
	`, winnerValue, gameID.String())
	if err != nil {
		return nil, apperr.Internal("failed to end game", err)
	}

	return s.Get(ctx, gameID)
}

// -----------------------------------------------------------------------
// Reverse lookups
// -----------------------------------------------------------------------

// GetByRoundID resolves a round id to its full game aggregate.
func (s *Store) GetByRoundID(ctx context.Context, roundID uuid.UUID) (*model.Game, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT g.id
		FROM games g
		JOIN rounds r ON r.game_id = g.id
		WHERE r.id = ?
	`, roundID.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("round not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to resolve round", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Internal("malformed game id in database", err)
	}
	return s.Get(ctx, id)
}

// GetByAnswerID resolves an answer id to its full game aggregate.
func (s *Store) GetByAnswerID(ctx context.Context, answerID uuid.UUID) (*model.Game, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT g.id
		FROM games g
		JOIN rounds r ON r.game_id = g.id
		JOIN answers a ON a.round_id = r.id
		WHERE a.id = ?
	`, answerID.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("answer not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to resolve answer", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Internal("malformed game id in database", err)
	}
	return s.Get(ctx, id)
}

// -----------------------------------------------------------------------
// Row helpers
// -----------------------------------------------------------------------

func (s *Store) getRow(ctx context.Context, id uuid.UUID) (*model.Game, error) {
	var (
		game      model.Game
		rawID     string
		rawUserID string
		rawImages string
		rawStatus string
		winner    sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, image_urls, status, winner
		FROM games
		WHERE id = ?
	`, id.String()).Scan(&rawID, &rawUserID, &game.Name, &rawImages, &rawStatus, &winner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("game not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to read game", err)
	}

	if game.ID, err = uuid.Parse(rawID); err != nil {
		return nil, apperr.Internal("malformed game id in database", err)
	}
	if game.UserID, err = uuid.Parse(rawUserID); err != nil {
		return nil, apperr.Internal("malformed owner id in database", err)
	}
	if err := json.Unmarshal([]byte(rawImages), &game.ImageURLs); err != nil {
		return nil, apperr.Internal("malformed image urls in database", err)
	}
	game.Status = model.GameStatus(rawStatus)
	if winner.Valid {
		w, err := uuid.Parse(winner.String)
		if err != nil {
			return nil, apperr.Internal("malformed winner id in database", err)
		}
		game.Winner = &w
	}

	return &game, nil
}

func (s *Store) roundsForGame(ctx context.Context, gameID uuid.UUID) ([]model.Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, round_number, image_url, answers_closed, round_winner
		FROM rounds
		WHERE game_id = ?
		ORDER BY round_number
	`, gameID.String())
	if err != nil {
		return nil, apperr.Internal("failed to read rounds", err)
	}
	defer rows.Close()

	var rounds []model.Round
	for rows.Next() {
		var (
			round     model.Round
			rawID     string
			rawGameID string
			winner    sql.NullString
		)
		if err := rows.Scan(&rawID, &rawGameID, &round.RoundNumber, &round.ImageURL, &round.AnswersClosed, &winner); err != nil {
			return nil, apperr.Internal("failed to read round", err)
		}
		if round.ID, err = uuid.Parse(rawID); err != nil {
			return nil, apperr.Internal("malformed round id in database", err)
		}
		if round.GameID, err = uuid.Parse(rawGameID); err != nil {
			return nil, apperr.Internal("malformed game id in database", err)
		}
		if winner.Valid {
			w, err := uuid.Parse(winner.String)
			if err != nil {
				return nil, apperr.Internal("malformed round winner in database", err)
			}
			round.RoundWinner = &w
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read rounds", err)
	}
	return rounds, nil
}

func (s *Store) playersForGame(ctx context.Context, gameID uuid.UUID) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, username, active, is_observer, score
		FROM players
		WHERE game_id = ?
		ORDER BY created, rowid
	`, gameID.String())
	if err != nil {
		return nil, apperr.Internal("failed to read players", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		player, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, apperr.Internal("failed to read player", err)
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read players", err)
	}
	return players, nil
}

func (s *Store) answersForGame(ctx context.Context, gameID uuid.UUID) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.round_id, a.player_id, a.value, a.likes, a.shown
		FROM answers a
		JOIN rounds r ON r.id = a.round_id
		WHERE r.game_id = ?
		ORDER BY a.created, a.rowid
	`, gameID.String())
	if err != nil {
		return nil, apperr.Internal("failed to read answers", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var (
			answer      model.Answer
			rawID       string
			rawRoundID  string
			rawPlayerID string
		)
		if err := rows.Scan(&rawID, &rawRoundID, &rawPlayerID, &answer.Value, &answer.Likes, &answer.Shown); err != nil {
			return nil, apperr.Internal("failed to read answer", err)
		}
		if answer.ID, err = uuid.Parse(rawID); err != nil {
			return nil, apperr.Internal("malformed answer id in database", err)
		}
		if answer.RoundID, err = uuid.Parse(rawRoundID); err != nil {
			return nil, apperr.Internal("malformed round id in database", err)
		}
		if answer.PlayerID, err = uuid.Parse(rawPlayerID); err != nil {
			return nil, apperr.Internal("malformed player id in database", err)
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to read answers", err)
	}
	return answers, nil
}

func scanPlayer(scan func(dest ...any) error) (*model.Player, error) {
	var (
		player    model.Player
		rawID     string
		rawGameID string
	)
	if err := scan(&rawID, &rawGameID, &player.Username, &player.Active, &player.IsObserver, &player.Score); err != nil {
		return nil, err
	}

	var err error
	if player.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	if player.GameID, err = uuid.Parse(rawGameID); err != nil {
		return nil, err
	}
	return &player, nil
}
