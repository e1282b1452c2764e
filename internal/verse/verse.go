// Package verse produces the taunt each agent delivers in a round.
package verse

import "context"

// Generator writes one verse for the named agent in the given round. It is
// called once per agent per round request; nothing is cached.
type Generator interface {
	Generate(ctx context.Context, name string, round int) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, name string, round int) (string, error)

func (f Func) Generate(ctx context.Context, name string, round int) (string, error) {
	return f(ctx, name, round)
}
