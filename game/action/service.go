// Package action applies client actions to a game, enforcing the role
// rules: the game master drives the round lifecycle, players submit
// answers, observers only like.
package action

import (
	"context"

	"github.com/google/uuid"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/store"
	"github.com/namethat/namethat/validate"
)

// Service applies actions for one connection: it is bound to a game and
// the role the connection negotiated.
type Service struct {
	games  *store.Store
	gameID uuid.UUID
	actor  model.PlayerType
}

// New creates an action service for one game and actor.
func New(games *store.Store, gameID uuid.UUID, actor model.PlayerType) *Service {
	return &Service{games: games, gameID: gameID, actor: actor}
}

// Apply executes one action. Role violations are authorization errors and
// references to rounds or answers outside this game are validation errors,
// so a misbehaving client cannot kill its own connection with garbage.
func (s *Service) Apply(ctx context.Context, a model.Action) error {
	switch act := a.(type) {
	case *model.PlayerJoin:
		// Handled during identity negotiation; here it is a no-op so a
		// re-sent join frame does not error out an established connection.
		return nil
	case *model.StartRound:
		return s.startRound(ctx, act)
	case *model.UserAnswer:
		return s.userAnswer(ctx, act)
	case *model.CloseAnswers:
		return s.closeAnswers(ctx, act)
	case *model.RevealAnswer:
		return s.revealAnswer(ctx, act)
	case *model.LikeAnswer:
		return s.likeAnswer(ctx, act)
	case *model.EndRound:
		return s.endRound(ctx, act)
	case *model.EndGame:
		return s.endGame(ctx)
	default:
		return apperr.Validation("unsupported action type %q", a.ActionType())
	}
}

func (s *Service) startRound(ctx context.Context, act *model.StartRound) error {
	if err := s.requireGameMaster(); err != nil {
		return err
	}

	game, err := s.games.Get(ctx, s.gameID)
	if err != nil {
		return err
	}
	if act.Round < 1 || act.Round > len(game.ImageURLs) {
		return apperr.Validation("round %d is out of range for a game with %d images", act.Round, len(game.ImageURLs))
	}

	if act.Round == 1 && game.Status == model.StatusPending {
		if _, err := s.games.Start(ctx, s.gameID); err != nil {
			return err
		}
	}

	_, err = s.games.AddRound(ctx, model.NewRound{
		GameID:      s.gameID,
		RoundNumber: act.Round,
		ImageURL:    game.ImageURLs[act.Round-1],
	})
	return err
}

func (s *Service) userAnswer(ctx context.Context, act *model.UserAnswer) error {
	if !s.actor.IsPlayer() {
		return apperr.Authorization("only players can submit answers")
	}
	if err := validate.AnswerText(act.Answer); err != nil {
		return err
	}

	round, err := s.roundInGame(ctx, act.RoundID)
	if err != nil {
		return err
	}
	if round.AnswersClosed {
		return apperr.Validation("answers are closed for this round")
	}

	playerID, _ := s.actor.PlayerID()
	_, err = s.games.AddAnswer(ctx, model.NewAnswer{
		PlayerID: playerID,
		RoundID:  act.RoundID,
		Value:    act.Answer,
	})
	return clientRef(err)
}

func (s *Service) closeAnswers(ctx context.Context, act *model.CloseAnswers) error {
	if err := s.requireGameMaster(); err != nil {
		return err
	}
	if _, err := s.roundInGame(ctx, act.RoundID); err != nil {
		return err
	}
	_, err := s.games.CloseAnswers(ctx, act.RoundID)
	return clientRef(err)
}

func (s *Service) revealAnswer(ctx context.Context, act *model.RevealAnswer) error {
	if err := s.requireGameMaster(); err != nil {
		return err
	}
	if err := s.answerInGame(ctx, act.AnswerID); err != nil {
		return err
	}
	_, err := s.games.ShowAnswer(ctx, act.AnswerID)
	return clientRef(err)
}

// likeAnswer is open to every role, game master and observers included.
func (s *Service) likeAnswer(ctx context.Context, act *model.LikeAnswer) error {
	if err := s.answerInGame(ctx, act.AnswerID); err != nil {
		return err
	}
	_, err := s.games.IncrementLike(ctx, act.AnswerID)
	return clientRef(err)
}

func (s *Service) endRound(ctx context.Context, act *model.EndRound) error {
	if err := s.requireGameMaster(); err != nil {
		return err
	}

	game, err := s.games.Get(ctx, s.gameID)
	if err != nil {
		return err
	}
	if game.RoundByID(act.RoundID) == nil {
		return apperr.Validation("round does not belong to this game")
	}
	winner := game.PlayerByID(act.Winner)
	if winner == nil {
		return apperr.Validation("winner is not a player of this game")
	}
	if winner.IsObserver {
		return apperr.Validation("observers cannot win a round")
	}

	if _, err := s.games.EndRound(ctx, act.RoundID, act.Winner); err != nil {
		return clientRef(err)
	}
	_, err = s.games.IncrementScore(ctx, act.Winner)
	return err
}

func (s *Service) endGame(ctx context.Context) error {
	if err := s.requireGameMaster(); err != nil {
		return err
	}
	_, err := s.games.End(ctx, s.gameID)
	return err
}

func (s *Service) requireGameMaster() error {
	if !s.actor.IsGameMaster() {
		return apperr.Authorization("only the game master can do that")
	}
	return nil
}

func (s *Service) roundInGame(ctx context.Context, roundID uuid.UUID) (*model.Round, error) {
	game, err := s.games.Get(ctx, s.gameID)
	if err != nil {
		return nil, err
	}
	round := game.RoundByID(roundID)
	if round == nil {
		return nil, apperr.Validation("round does not belong to this game")
	}
	return round, nil
}

func (s *Service) answerInGame(ctx context.Context, answerID uuid.UUID) error {
	game, err := s.games.Get(ctx, s.gameID)
	if err != nil {
		return err
	}
	for i := range game.Rounds {
		for j := range game.Rounds[i].Answers {
			if game.Rounds[i].Answers[j].ID == answerID {
				return nil
			}
		}
	}
	return apperr.Validation("answer does not belong to this game")
}

// clientRef downgrades a store miss on a client-supplied id to a
// validation error. The record existed moments ago in the pre-check, so a
// miss here means the client raced a delete, not that the server broke.
func clientRef(err error) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.Validation("referenced record no longer exists")
	}
	return err
}
