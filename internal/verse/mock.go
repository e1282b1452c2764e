package verse

import (
	"context"
	"fmt"
	"math/rand/v2"
)

var (
	openers = []string{
		"Yo, listen up—",
		"Check the waveform—",
		"Hold my packet loss—",
		"I came in hot like a space heater in July—",
		"Reality check, no reboot—",
	}
	brags = []string{
		"I compile confidence with zero warnings.",
		"My metaphors got throughput like fiber optics.",
		"I’m the checksum—your bars don’t validate.",
		"I run laps around your logic like it's O(1).",
		"You’re a demo build—I'm the release candidate.",
	}
	dunks = []string{
		"Your punchlines lag, mine stream in 4K.",
		"You rhyme like a CAPTCHA—painful and incorrect.",
		"Your flow's a 404: meaning not found.",
		"You talk big, but your verse is underfitted.",
		"You’re all hype—no signal.",
	}
	closers = []string{
		"Round secured. Next.",
		"Mic drop—physics approves.",
		"That’s not a diss, it’s a refactor.",
		"Crowd goes brrr.",
		"Ship it.",
	}
)

// Mock draws one line from each pool independently.
type Mock struct {
	pick func(n int) int
}

func NewMock() *Mock {
	return &Mock{pick: rand.IntN}
}

// NewMockWithPicker is for tests that need a fixed draw.
func NewMockWithPicker(pick func(n int) int) *Mock {
	return &Mock{pick: pick}
}

func (m *Mock) Generate(_ context.Context, name string, round int) (string, error) {
	return fmt.Sprintf("%s\n%s in Round %d:\n- %s\n- %s\n%s",
		m.from(openers), name, round, m.from(brags), m.from(dunks), m.from(closers)), nil
}

func (m *Mock) from(pool []string) string {
	return pool[m.pick(len(pool))]
}
