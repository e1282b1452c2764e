package engine

import (
	"errors"
)

var ErrInvalidRound = errors.New("round must be 1..3")
var ErrInvalidWinner = errors.New("winner must be A or B")
var ErrAlreadyVoted = errors.New("already voted this round")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Winner string

const (
	WinnerNone Winner = ""
	WinnerA    Winner = "A"
	WinnerB    Winner = "B"
	WinnerTie  Winner = "TIE"
)

type Phase string

const (
	PhaseVoting Phase = "voting"
	PhaseDone   Phase = "done"
)

// State is a value: Votes is an array so copies never alias.
type State struct {
	AgentA string
	AgentB string
	Votes  [RoundCount]Winner // index = round-1
	Phase  Phase
}

type CommandType string

const (
	CmdCastVote CommandType = "CastVote"
)

/*
	CmdCastVote -> EvtVoteCast -> EvtBattleCompleted (only once the third open round is filled)
	Rounds may be voted in any order; the server does not enforce sequencing, the client does.
*/

type Command struct {
	Type   CommandType
	Round  int
	Winner Winner
}

type EventType string

const (
	EvtVoteCast        EventType = "VoteCast"
	EvtBattleCompleted EventType = "BattleCompleted"
)

type Event struct {
	Type   EventType
	Round  int
	Winner Winner
}

// Result is derived from State on demand and never stored.
type Result struct {
	ScoreA   int
	ScoreB   int
	Winner   Winner
	Complete bool
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdCastVote:
		if !ValidRound(cmd.Round) {
			return nil, s, ErrInvalidRound
		}
		if !ValidWinner(cmd.Winner) {
			return nil, s, ErrInvalidWinner
		}
		if s.Votes[cmd.Round-1] != WinnerNone {
			return nil, s, ErrAlreadyVoted
		}

		newState := s
		newState.Votes[cmd.Round-1] = cmd.Winner
		newState.Phase = DerivePhase(newState)

		events := []Event{
			{Type: EvtVoteCast, Round: cmd.Round, Winner: cmd.Winner},
		}
		if newState.Phase == PhaseDone {
			events = append(events, Event{Type: EvtBattleCompleted})
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func Reduce(agentA, agentB string, events []Event) State {
	s := NewState(agentA, agentB)
	for _, event := range events {
		switch event.Type {
		case EvtVoteCast:
			if ValidRound(event.Round) {
				s.Votes[event.Round-1] = event.Winner
			}
		case EvtBattleCompleted:
			s.Phase = PhaseDone
		}
	}

	s.Phase = DerivePhase(s)
	return s
}

// Tally counts round wins. Unvoted rounds count for nobody, so a partial battle
// can still have a leader or end in a tie.
func Tally(s State) Result {
	r := Result{Complete: true}
	for _, v := range s.Votes {
		switch v {
		case WinnerA:
			r.ScoreA++
		case WinnerB:
			r.ScoreB++
		default:
			r.Complete = false
		}
	}

	switch {
	case r.ScoreA > r.ScoreB:
		r.Winner = WinnerA
	case r.ScoreB > r.ScoreA:
		r.Winner = WinnerB
	default:
		r.Winner = WinnerTie
	}
	return r
}

func votedRounds(s State) int {
	n := 0
	for _, v := range s.Votes {
		if v != WinnerNone {
			n++
		}
	}
	return n
}
