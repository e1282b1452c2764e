package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/rap-battle-backend/internal/battle"
	"github.com/DoyleJ11/rap-battle-backend/internal/config"
	"github.com/DoyleJ11/rap-battle-backend/internal/httpapi"
	"github.com/DoyleJ11/rap-battle-backend/internal/hub"
	"github.com/DoyleJ11/rap-battle-backend/internal/logging"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
	"github.com/DoyleJ11/rap-battle-backend/internal/store/postgres"
	"github.com/DoyleJ11/rap-battle-backend/internal/verse"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, opts, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	opts.AllowedOrigins = cfg.AllowedOrigins

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Build the router with the battle service injected
	svc := battle.NewService(st, newGenerator(cfg), log)
	return serve(ctx, ln, st, svc, opts, cfg, log)
}

// serve runs until ctx is done, then drains in-flight requests. The store
// must stay open until serve returns.
func serve(ctx context.Context, ln net.Listener, st store.Store, svc *battle.Service, opts httpapi.Options, cfg config.Config, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           httpapi.SetupRoutes(svc, log, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("store", cfg.Store),
			zap.String("verse_generator", cfg.Generator),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		return store.Sweep(gctx, st, cfg.SessionTTL, cfg.SweepInterval, log.Named("sweep"))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStore also decides whether the spectator feed is served; only the
// in-memory hub can push scoreboards.
func openStore(ctx context.Context, cfg config.Config) (store.Store, httpapi.Options, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, httpapi.Options{}, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return pg, httpapi.Options{}, func() { _ = pg.Close() }, nil
	default:
		// Not tied to ctx: requests drained after a signal still need the
		// hub. closeStore stops it once the server has returned.
		h := hub.NewHub(context.Background())
		return h, httpapi.Options{Feed: h}, h.Close, nil
	}
}

func newGenerator(cfg config.Config) verse.Generator {
	if cfg.Generator == config.GeneratorOpenAI {
		return verse.NewOpenAI(verse.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	}
	return verse.NewMock()
}
