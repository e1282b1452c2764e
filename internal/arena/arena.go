package arena

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
)

var ErrClosed = errors.New("arena closed")

type Msg interface{ isArenaMsg() }

type CastVote struct {
	Round  int
	Winner engine.Winner
	Reply  chan error // buffered; the arena never blocks on it
}

func (CastVote) isArenaMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this spectator wants to receive snapshots
	Joined   chan struct{} // optional; closed once Outbox is registered
}

func (Join) isArenaMsg() {}

// Leave closes the spectator's outbox if it is still registered.
type Leave struct{ ClientID string }

func (Leave) isArenaMsg() {}

type Shutdown struct{}

func (Shutdown) isArenaMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isArenaMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Arena owns one battle session. Every read and write of its state goes
// through the loop goroutine, so votes on the same session never race.
type Arena struct {
	inbox      chan Msg
	state      engine.State
	version    int
	clients    map[string]chan Snapshot
	lastActive atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewArena(parent context.Context, initial engine.State) *Arena {
	ctx, cancel := context.WithCancel(parent)

	a := &Arena{
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	a.touch()

	go a.loop()
	return a
}

func (a *Arena) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			a.shutdown()
			return

		case m := <-a.inbox:
			switch msg := m.(type) {
			case Join:
				// Register spectator + send current snapshot immediately
				a.clients[msg.ClientID] = msg.Outbox
				a.deliver(msg.ClientID, msg.Outbox, Snapshot{Version: a.version, State: a.state})
				if msg.Joined != nil {
					close(msg.Joined)
				}

			case Leave:
				if ch, ok := a.clients[msg.ClientID]; ok {
					close(ch)
					delete(a.clients, msg.ClientID)
				}

			case CastVote:
				a.touch()
				_, newState, err := engine.Apply(a.state, engine.Command{
					Type:   engine.CmdCastVote,
					Round:  msg.Round,
					Winner: msg.Winner,
				})
				if err != nil {
					msg.Reply <- err
					break
				}
				a.state = newState
				a.version++
				a.broadcast(Snapshot{Version: a.version, State: a.state})
				msg.Reply <- nil

			case GetState:
				a.touch()
				msg.Reply <- View{
					Version:    a.version,
					NumClients: len(a.clients),
					State:      a.state,
				}

			case Shutdown:
				a.shutdown()
				return
			}
		}
	}
}

func (a *Arena) shutdown() {
	for id, ch := range a.clients {
		close(ch) // Tell spectator no more snapshots
		delete(a.clients, id)
	}
	a.cancel()
}

func (a *Arena) broadcast(snap Snapshot) {
	for id, ch := range a.clients {
		a.deliver(id, ch, snap)
	}
}

func (a *Arena) deliver(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Spectator is slow/full - drop them.
		close(ch)
		delete(a.clients, id)
	}
}

func (a *Arena) touch() { a.lastActive.Store(time.Now().UnixNano()) }

// LastActive is the time of the last vote or state read.
func (a *Arena) LastActive() time.Time { return time.Unix(0, a.lastActive.Load()) }

// Expose the inbox so tests or the hub can send messages.
func (a *Arena) Inbox() chan<- Msg { return a.inbox }

// Done is closed once the loop has exited.
func (a *Arena) Done() <-chan struct{} { return a.done }

func (a *Arena) Close() { a.cancel() }

func (a *Arena) Vote(ctx context.Context, round int, winner engine.Winner) error {
	reply := make(chan error, 1)
	if err := a.send(ctx, CastVote{Round: round, Winner: winner, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Arena) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := a.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-a.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Watch registers a spectator and returns its snapshot stream plus a func that
// unregisters it. The stream is closed on leave, on shutdown, or when the
// spectator falls behind. Watch returns only once the arena has taken the
// registration, so a stream it hands out is always eventually closed.
func (a *Arena) Watch(ctx context.Context, clientID string, buffer int) (<-chan Snapshot, func(), error) {
	out := make(chan Snapshot, buffer)
	joined := make(chan struct{})
	if err := a.send(ctx, Join{ClientID: clientID, Outbox: out, Joined: joined}); err != nil {
		return nil, nil, err
	}
	leave := func() {
		select {
		case a.inbox <- Leave{ClientID: clientID}:
		case <-a.done:
		}
	}

	select {
	case <-joined:
		return out, leave, nil
	case <-a.done:
		// The loop exited with our Join still queued.
		return nil, nil, ErrClosed
	case <-ctx.Done():
		// Leave queues behind the pending Join and undoes it.
		leave()
		return nil, nil, ctx.Err()
	}
}

func (a *Arena) send(ctx context.Context, m Msg) error {
	select {
	case a.inbox <- m:
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
