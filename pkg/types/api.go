package types

// Client -> Server, one POST per operation, JSON bodies.
//
// POST /api/start   StartRequest  -> StartResponse
// POST /api/round   RoundRequest  -> RoundResponse
// POST /api/vote    VoteRequest   -> VoteResponse
// POST /api/result  ResultRequest -> ResultResponse
//
// Errors come back as plain text with the HTTP status:
//   404 Unknown sessionId
//   400 round must be 1..3 | winner must be A or B | invalid request body
//   409 Already voted this round
//   502 verse generator unavailable

type Agent struct {
	Name string `json:"name"`
}

type StartRequest struct {
	AgentA Agent `json:"agentA"`
	AgentB Agent `json:"agentB"`
}

type StartResponse struct {
	SessionID string `json:"sessionId"`
}

type RoundRequest struct {
	SessionID string `json:"sessionId"`
	Round     int    `json:"round"`
}

type RoundResponse struct {
	VerseA string `json:"verseA"`
	VerseB string `json:"verseB"`
}

type VoteRequest struct {
	SessionID string `json:"sessionId"`
	Round     int    `json:"round"`
	Winner    string `json:"winner"` // "A" | "B"
}

type VoteResponse struct {
	OK bool `json:"ok"`
}

type ResultRequest struct {
	SessionID string `json:"sessionId"`
}

type ResultResponse struct {
	ScoreA   int    `json:"scoreA"`
	ScoreB   int    `json:"scoreB"`
	Winner   string `json:"winner"` // "A" | "B" | "TIE"
	Complete bool   `json:"complete"`
}
