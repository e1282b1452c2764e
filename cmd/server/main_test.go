package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/rap-battle-backend/internal/battle"
	"github.com/DoyleJ11/rap-battle-backend/internal/client"
	"github.com/DoyleJ11/rap-battle-backend/internal/config"
	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/internal/hub"
	"github.com/DoyleJ11/rap-battle-backend/internal/verse"
)

func TestShutdownDrainsInFlightRequests(t *testing.T) {
	cfg := config.Config{
		Store:          config.StoreMemory,
		Generator:      config.GeneratorMock,
		SessionTTL:     time.Hour,
		SweepInterval:  time.Hour,
		AllowedOrigins: []string{"*"},
	}
	log := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, opts, closeStore, err := openStore(ctx, cfg)
	require.NoError(t, err)
	opts.AllowedOrigins = cfg.AllowedOrigins

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	gen := verse.Func(func(_ context.Context, name string, round int) (string, error) {
		entered <- struct{}{}
		<-release
		return name + " holds the mic", nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, ln, st, battle.NewService(st, gen, log), opts, cfg, log)
	}()

	api := client.New("http://"+addr, nil)
	tok, err := api.Start(context.Background(), "Ann", "Bob")
	require.NoError(t, err)

	type roundResult struct {
		verseA string
		err    error
	}
	inFlight := make(chan roundResult, 1)
	go func() {
		r, err := api.Round(context.Background(), tok, 1)
		inFlight <- roundResult{r.VerseA, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("round request never reached the generator")
	}

	cancel()

	// Shutdown has begun once the listener stops accepting.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// Sessions stay usable while requests drain.
	require.NoError(t, st.RecordVote(context.Background(), tok, 1, engine.WinnerA))
	s, err := st.Get(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, engine.WinnerA, engine.VoteFor(s, 1))

	close(release)

	select {
	case res := <-inFlight:
		require.NoError(t, res.err)
		assert.Equal(t, "Ann holds the mic", res.verseA)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight round never completed")
	}

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(shutdownGrace):
		t.Fatal("serve did not return after shutdown")
	}

	closeStore()
	_, err = st.Get(context.Background(), tok)
	assert.True(t, errors.Is(err, hub.ErrHubClosed), "got %v", err)
}
