package httpapi

import (
	"encoding/json"
	"math"
)

// Request bodies are decoded field by field: a value of the wrong JSON type
// becomes the zero value and the battle rules reject it with their own
// message, after the session lookup.

type startBody struct {
	AgentA json.RawMessage `json:"agentA"`
	AgentB json.RawMessage `json:"agentB"`
}

type roundBody struct {
	SessionID json.RawMessage `json:"sessionId"`
	Round     json.RawMessage `json:"round"`
}

type voteBody struct {
	SessionID json.RawMessage `json:"sessionId"`
	Round     json.RawMessage `json:"round"`
	Winner    json.RawMessage `json:"winner"`
}

type resultBody struct {
	SessionID json.RawMessage `json:"sessionId"`
}

// looseString is "" unless raw is a JSON string.
func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// looseRound accepts any integral JSON number (2.0 is 2). Anything else is
// 0, which no round accepts.
func looseRound(raw json.RawMessage) int {
	var f float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return 0
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// agentName reads {"name": "..."}; any other shape yields "" so the default
// name applies.
func agentName(raw json.RawMessage) string {
	var a struct {
		Name json.RawMessage `json:"name"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &a) != nil {
		return ""
	}
	return looseString(a.Name)
}
