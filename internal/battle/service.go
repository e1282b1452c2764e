package battle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
	"github.com/DoyleJ11/rap-battle-backend/internal/verse"
)

var ErrVerseUnavailable = errors.New("verse generator unavailable")

type Round struct {
	VerseA string
	VerseB string
}

// Service runs the four battle operations against a session store.
type Service struct {
	store  store.Store
	verses verse.Generator
	log    *zap.Logger
}

func NewService(st store.Store, gen verse.Generator, log *zap.Logger) *Service {
	return &Service{store: st, verses: gen, log: log}
}

// Start opens a new battle. Blank names fall back to "Agent A" and "Agent B".
func (s *Service) Start(ctx context.Context, agentA, agentB string) (string, error) {
	a := engine.DisplayName(agentA, engine.DefaultAgentA)
	b := engine.DisplayName(agentB, engine.DefaultAgentB)

	token, err := s.store.Create(ctx, a, b)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.log.Debug("battle started", zap.String("session", token), zap.String("agent_a", a), zap.String("agent_b", b))
	return token, nil
}

// Round generates fresh verses for both agents. Nothing is stored, so asking
// for the same round twice gives different text.
func (s *Service) Round(ctx context.Context, token string, round int) (Round, error) {
	state, err := s.store.Get(ctx, token)
	if err != nil {
		return Round{}, err
	}
	if !engine.ValidRound(round) {
		return Round{}, engine.ErrInvalidRound
	}

	verseA, err := s.verses.Generate(ctx, state.AgentA, round)
	if err != nil {
		return Round{}, s.verseFailed(token, state.AgentA, err)
	}
	verseB, err := s.verses.Generate(ctx, state.AgentB, round)
	if err != nil {
		return Round{}, s.verseFailed(token, state.AgentB, err)
	}

	s.log.Debug("round generated", zap.String("session", token), zap.Int("round", round))
	return Round{VerseA: verseA, VerseB: verseB}, nil
}

func (s *Service) verseFailed(token, agent string, err error) error {
	s.log.Warn("verse generation failed",
		zap.String("session", token),
		zap.String("agent", agent),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrVerseUnavailable, err)
}

// Vote records winner for round. A second vote on the same round fails with
// engine.ErrAlreadyVoted and leaves the first one in place.
func (s *Service) Vote(ctx context.Context, token string, round int, winner string) error {
	if err := s.store.RecordVote(ctx, token, round, engine.Winner(winner)); err != nil {
		return err
	}
	s.log.Debug("vote recorded", zap.String("session", token), zap.Int("round", round), zap.String("winner", winner))
	return nil
}

// Result tallies whatever has been voted so far; it does not wait for all
// three rounds.
func (s *Service) Result(ctx context.Context, token string) (engine.Result, error) {
	state, err := s.store.Get(ctx, token)
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Tally(state), nil
}
