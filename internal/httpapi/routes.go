package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/rap-battle-backend/internal/battle"
	"github.com/DoyleJ11/rap-battle-backend/internal/ws"
)

type Options struct {
	// AllowedOrigins feeds both CORS and the websocket origin check.
	AllowedOrigins []string
	// Feed enables /api/ws when non-nil.
	Feed ws.Feed
}

func SetupRoutes(svc *battle.Service, log *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/", Alive)
	r.Get("/healthz", Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", StartBattle(svc, log))
		r.Post("/round", GetRound(svc, log))
		r.Post("/vote", CastVote(svc, log))
		r.Post("/result", GetResult(svc, log))

		if opts.Feed != nil {
			r.Get("/ws", ws.Handler(opts.Feed, log, &websocket.AcceptOptions{
				OriginPatterns: originPatterns(opts.AllowedOrigins),
			}))
		}
	})
	return r
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		patterns = append(patterns, hostOf(o))
	}
	return patterns
}
