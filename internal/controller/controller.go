// Package controller drives one player's view of a battle: start, load each
// round, vote, advance, and show the final scoreboard.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/rap-battle-backend/internal/client"
	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/pkg/types"
)

var ErrMissingAPIBase = errors.New("please enter your backend API base URL (e.g. https://your-app.onrender.com)")

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseInBattle Phase = "in_battle"
	PhaseFinished Phase = "finished"
)

// Final is only set once the battle is Finished.
type Final struct {
	ScoreA  int
	ScoreB  int
	Winner  engine.Winner
	Message string
}

// State is replaced as a whole on every transition; a failed call leaves the
// previous value in place.
type State struct {
	Phase     Phase
	APIBase   string
	SessionID string
	NameA     string
	NameB     string
	Round     int
	ScoreA    int
	ScoreB    int
	Voted     bool
	VerseA    string
	VerseB    string
	Final     *Final
}

func Idle() State {
	return State{
		Phase: PhaseIdle,
		NameA: engine.DefaultAgentA,
		NameB: engine.DefaultAgentB,
		Round: 1,
	}
}

// API is the slice of the battle API the controller needs.
type API interface {
	Start(ctx context.Context, agentA, agentB string) (string, error)
	Round(ctx context.Context, sessionID string, round int) (types.RoundResponse, error)
	Vote(ctx context.Context, sessionID string, round int, winner string) error
	Result(ctx context.Context, sessionID string) (types.ResultResponse, error)
}

type Controller struct {
	dial  func(base string) API
	api   API
	state State
}

// New takes a dial func so the API base can be chosen at start time.
func New(dial func(base string) API) *Controller {
	return &Controller{dial: dial, state: Idle()}
}

// NewHTTP dials the real HTTP client.
func NewHTTP() *Controller {
	return New(func(base string) API { return client.New(base, nil) })
}

func (c *Controller) State() State { return c.state }

func (c *Controller) StartBattle(ctx context.Context, apiBase, nameA, nameB string) error {
	base := client.NormalizeBaseURL(apiBase)
	if base == "" {
		return ErrMissingAPIBase
	}
	a := engine.DisplayName(nameA, engine.DefaultAgentA)
	b := engine.DisplayName(nameB, engine.DefaultAgentB)

	api := c.dial(base)
	sessionID, err := api.Start(ctx, a, b)
	if err != nil {
		return err
	}

	c.api = api
	c.state = State{
		Phase:     PhaseInBattle,
		APIBase:   base,
		SessionID: sessionID,
		NameA:     a,
		NameB:     b,
		Round:     1,
	}
	return c.LoadRound(ctx)
}

// LoadRound fetches the verses for the current round and reopens voting.
func (c *Controller) LoadRound(ctx context.Context) error {
	if c.state.Phase != PhaseInBattle {
		return nil
	}
	r, err := c.api.Round(ctx, c.state.SessionID, c.state.Round)
	if err != nil {
		return err
	}

	next := c.state
	next.Voted = false
	next.VerseA = r.VerseA
	next.VerseB = r.VerseB
	c.state = next
	return nil
}

// Vote is a no-op once this round has a vote.
func (c *Controller) Vote(ctx context.Context, winner engine.Winner) error {
	if c.state.Phase != PhaseInBattle || c.state.Voted {
		return nil
	}
	if err := c.api.Vote(ctx, c.state.SessionID, c.state.Round, string(winner)); err != nil {
		return err
	}

	next := c.state
	switch winner {
	case engine.WinnerA:
		next.ScoreA++
	case engine.WinnerB:
		next.ScoreB++
	}
	next.Voted = true
	c.state = next
	return nil
}

// NextRound is a no-op until the current round is voted. After round 3 it
// fetches the result and finishes the battle.
func (c *Controller) NextRound(ctx context.Context) error {
	if c.state.Phase != PhaseInBattle || !c.state.Voted {
		return nil
	}

	if c.state.Round >= engine.RoundCount {
		res, err := c.api.Result(ctx, c.state.SessionID)
		if err != nil {
			return err
		}
		next := c.state
		next.Phase = PhaseFinished
		next.Final = &Final{
			ScoreA:  res.ScoreA,
			ScoreB:  res.ScoreB,
			Winner:  engine.Winner(res.Winner),
			Message: FinalMessage(c.state.NameA, c.state.NameB, res),
		}
		c.state = next
		return nil
	}

	r, err := c.api.Round(ctx, c.state.SessionID, c.state.Round+1)
	if err != nil {
		return err
	}
	next := c.state
	next.Round++
	next.Voted = false
	next.VerseA = r.VerseA
	next.VerseB = r.VerseB
	c.state = next
	return nil
}

// Reset forgets the battle locally. The server session is left to expire.
func (c *Controller) Reset() {
	c.api = nil
	c.state = Idle()
}

func FinalMessage(nameA, nameB string, res types.ResultResponse) string {
	text := fmt.Sprintf("%s: %d  |  %s: %d\n", nameA, res.ScoreA, nameB, res.ScoreB)
	switch engine.Winner(res.Winner) {
	case engine.WinnerA:
		return text + "🏆 Winner: " + nameA
	case engine.WinnerB:
		return text + "🏆 Winner: " + nameB
	default:
		return text + "🤝 It’s a tie. The crowd is confused but happy."
	}
}
