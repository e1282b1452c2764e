package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
)

var ErrSessionNotFound = errors.New("session not found")

// Store holds battle sessions keyed by an opaque token.
//
// RecordVote checks in order: unknown session, round range, winner tag, and
// whether the round is already voted. A rejected vote leaves the session as it
// was. Implementations serialise concurrent votes on the same session so that
// at most one of them fills a round.
type Store interface {
	Create(ctx context.Context, agentA, agentB string) (string, error)
	Get(ctx context.Context, token string) (engine.State, error)
	RecordVote(ctx context.Context, token string, round int, winner engine.Winner) error
	Expire(ctx context.Context, idleSince time.Time) (int, error)
}

const tokenBytes = 12

// NewToken returns 24 hex characters from 12 crypto-random bytes.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
