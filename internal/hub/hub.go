package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/rap-battle-backend/internal/arena"
	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

// CreateArena replies with nil if Code is already taken.
type CreateArena struct {
	Code  string
	State engine.State
	Reply chan *arena.Arena
}

type GetArena struct {
	Code  string
	Reply chan *arena.Arena
}

// ExpireIdle shuts down every arena whose last activity is before Before and
// replies with how many were removed.
type ExpireIdle struct {
	Before time.Time
	Reply  chan int
}

type ShutdownHub struct{}

func (CreateArena) isHubMsg() {}
func (GetArena) isHubMsg()    {}
func (ExpireIdle) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

var ErrHubClosed = errors.New("hub closed")

// Hub is the in-memory session store: a registry goroutine that owns the map
// from session token to arena.
type Hub struct {
	inbox   chan HubMsg
	arenas  map[string]*arena.Arena
	ctx     context.Context
	cancel  context.CancelFunc
	newCode func() (string, error)
}

var _ store.Store = (*Hub)(nil)

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		arenas:  make(map[string]*arena.Arena),
		ctx:     ctx,
		cancel:  cancel,
		newCode: store.NewToken,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateArena:
				if h.arenas[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				a := arena.NewArena(h.ctx, msg.State)
				h.arenas[msg.Code] = a
				msg.Reply <- a

			case GetArena:
				msg.Reply <- h.arenas[msg.Code] // May be nil

			case ExpireIdle:
				n := 0
				for code, a := range h.arenas {
					if a.LastActive().Before(msg.Before) {
						a.Close()
						delete(h.arenas, code)
						n++
					}
				}
				msg.Reply <- n

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, a := range h.arenas {
		a.Close()
	}
	clear(h.arenas)
	h.cancel()
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) lookup(ctx context.Context, code string) (*arena.Arena, error) {
	reply := make(chan *arena.Arena, 1)
	if err := h.send(ctx, GetArena{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	a, err := recv(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, store.ErrSessionNotFound
	}
	return a, nil
}

// Create registers a fresh battle under a new token, regenerating the token
// on collision.
func (h *Hub) Create(ctx context.Context, agentA, agentB string) (string, error) {
	state := engine.NewState(agentA, agentB)
	for {
		code, err := h.newCode()
		if err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}

		reply := make(chan *arena.Arena, 1)
		if err := h.send(ctx, CreateArena{Code: code, State: state, Reply: reply}); err != nil {
			return "", err
		}
		a, err := recv(ctx, h, reply)
		if err != nil {
			return "", err
		}
		if a != nil {
			return code, nil
		}
		// collision on code, regenerate
	}
}

func (h *Hub) Get(ctx context.Context, token string) (engine.State, error) {
	a, err := h.lookup(ctx, token)
	if err != nil {
		return engine.State{}, err
	}
	v, err := a.View(ctx)
	if errors.Is(err, arena.ErrClosed) {
		return engine.State{}, store.ErrSessionNotFound
	}
	return v.State, err
}

func (h *Hub) RecordVote(ctx context.Context, token string, round int, winner engine.Winner) error {
	a, err := h.lookup(ctx, token)
	if err != nil {
		return err
	}
	err = a.Vote(ctx, round, winner)
	if errors.Is(err, arena.ErrClosed) {
		return store.ErrSessionNotFound
	}
	return err
}

func (h *Hub) Expire(ctx context.Context, idleSince time.Time) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, ExpireIdle{Before: idleSince, Reply: reply}); err != nil {
		return 0, err
	}
	return recv(ctx, h, reply)
}

// Watch streams scoreboard snapshots of one session. The returned func
// unsubscribes and must be called once the caller is done reading.
func (h *Hub) Watch(ctx context.Context, token, clientID string) (<-chan arena.Snapshot, func(), error) {
	a, err := h.lookup(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	snaps, leave, err := a.Watch(ctx, clientID, 8)
	if errors.Is(err, arena.ErrClosed) {
		return nil, nil, store.ErrSessionNotFound
	}
	return snaps, leave, err
}

// Close stops the hub and every arena it owns.
func (h *Hub) Close() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}
