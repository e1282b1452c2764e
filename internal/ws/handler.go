package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/rap-battle-backend/internal/arena"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
	"github.com/DoyleJ11/rap-battle-backend/internal/types"
)

// Feed streams snapshots of a session until the returned func is called.
type Feed interface {
	Watch(ctx context.Context, token, clientID string) (<-chan arena.Snapshot, func(), error)
}

// Handler serves a read-only scoreboard stream for ?sessionId=.
func Handler(feed Feed, log *zap.Logger, acceptOpts *websocket.AcceptOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("sessionId")
		if token == "" {
			http.Error(w, "missing sessionId", http.StatusBadRequest)
			return
		}

		clientID := uuid.NewString()
		snaps, leave, err := feed.Watch(r.Context(), token, clientID)
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "Unknown sessionId", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("watch session", zap.String("session", token), zap.Error(err))
			http.Error(w, "failed to watch session", http.StatusInternalServerError)
			return
		}
		defer leave()

		conn, err := websocket.Accept(w, r, acceptOpts)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		log.Debug("spectator joined", zap.String("session", token), zap.String("client", clientID))

		// Spectators never send; CloseRead handles pings and cancels ctx on close.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					// Session expired or we fell behind.
					conn.Close(websocket.StatusGoingAway, "session closed")
					return
				}
				msg := types.ServerMessage{
					Type:       "Scoreboard",
					Version:    snap.Version,
					Scoreboard: types.NewScoreboard(snap.State),
				}
				payload, _ := json.Marshal(msg)
				writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				err := conn.Write(writeCtx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}
	}
}
