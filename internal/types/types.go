package types

import "github.com/DoyleJ11/rap-battle-backend/internal/engine"

// ServerMessage is what spectators receive on /api/ws.
type ServerMessage struct {
	Type       string      `json:"type"` // "Scoreboard"
	Version    int         `json:"version"`
	Scoreboard *Scoreboard `json:"scoreboard"`
}

type Scoreboard struct {
	AgentA   string   `json:"agentA"`
	AgentB   string   `json:"agentB"`
	Votes    []string `json:"votes"` // one entry per round, "" when unvoted
	ScoreA   int      `json:"scoreA"`
	ScoreB   int      `json:"scoreB"`
	Leader   string   `json:"leader"` // "A" | "B" | "TIE"
	Complete bool     `json:"complete"`
}

func NewScoreboard(s engine.State) *Scoreboard {
	r := engine.Tally(s)
	votes := make([]string, 0, engine.RoundCount)
	for _, v := range s.Votes {
		votes = append(votes, string(v))
	}
	return &Scoreboard{
		AgentA:   s.AgentA,
		AgentB:   s.AgentB,
		Votes:    votes,
		ScoreA:   r.ScoreA,
		ScoreB:   r.ScoreB,
		Leader:   string(r.Winner),
		Complete: r.Complete,
	}
}
