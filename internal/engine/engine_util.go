package engine

import "strings"

const (
	DefaultAgentA = "Agent A"
	DefaultAgentB = "Agent B"
)

func NewState(agentA, agentB string) State {
	s := State{
		AgentA: DisplayName(agentA, DefaultAgentA),
		AgentB: DisplayName(agentB, DefaultAgentB),
	}
	s.Phase = DerivePhase(s)
	return s
}

// DisplayName trims name and falls back to def when nothing is left.
func DisplayName(name, def string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return def
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func DerivePhase(s State) Phase {
	if votedRounds(s) == RoundCount {
		return PhaseDone
	}
	return PhaseVoting
}

func ValidWinner(w Winner) bool {
	return w == WinnerA || w == WinnerB
}
