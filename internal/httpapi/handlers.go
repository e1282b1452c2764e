package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/rap-battle-backend/internal/battle"
	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
	"github.com/DoyleJ11/rap-battle-backend/pkg/types"
)

const maxBodyBytes = 1 << 16

var errBadBody = errors.New("invalid request body")

func StartBattle(svc *battle.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Start never rejects its body; unreadable input means default names.
		var req startBody
		if err := decodeJSON(w, r, &req); err != nil {
			req = startBody{}
		}

		token, err := svc.Start(r.Context(), agentName(req.AgentA), agentName(req.AgentB))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.StartResponse{SessionID: token})
	}
}

func GetRound(svc *battle.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roundBody
		if err := decodeJSON(w, r, &req); err != nil {
			http.Error(w, errBadBody.Error(), http.StatusBadRequest)
			return
		}

		round, err := svc.Round(r.Context(), looseString(req.SessionID), looseRound(req.Round))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.RoundResponse{VerseA: round.VerseA, VerseB: round.VerseB})
	}
}

func CastVote(svc *battle.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voteBody
		if err := decodeJSON(w, r, &req); err != nil {
			http.Error(w, errBadBody.Error(), http.StatusBadRequest)
			return
		}

		err := svc.Vote(r.Context(), looseString(req.SessionID), looseRound(req.Round), looseString(req.Winner))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.VoteResponse{OK: true})
	}
}

func GetResult(svc *battle.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resultBody
		if err := decodeJSON(w, r, &req); err != nil {
			http.Error(w, errBadBody.Error(), http.StatusBadRequest)
			return
		}

		res, err := svc.Result(r.Context(), looseString(req.SessionID))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ResultResponse{
			ScoreA:   res.ScoreA,
			ScoreB:   res.ScoreB,
			Winner:   string(res.Winner),
			Complete: res.Complete,
		})
	}
}

func Alive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Rap Battle API is alive.")
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// statusFor maps a battle error to its HTTP status and plain-text body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusNotFound, "Unknown sessionId"
	case errors.Is(err, engine.ErrInvalidRound):
		return http.StatusBadRequest, "round must be 1..3"
	case errors.Is(err, engine.ErrInvalidWinner):
		return http.StatusBadRequest, "winner must be A or B"
	case errors.Is(err, engine.ErrAlreadyVoted):
		return http.StatusConflict, "Already voted this round"
	case errors.Is(err, battle.ErrVerseUnavailable):
		return http.StatusBadGateway, "verse generator unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON treats an empty body, or one that is not a JSON object, as {}.
// Only unparseable or oversized bodies are errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, io.EOF) || errors.As(err, &typeErr) {
		return nil
	}
	return err
}
