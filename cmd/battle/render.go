package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/rap-battle-backend/internal/controller"
)

func render(out io.Writer, s controller.State) {
	var b strings.Builder

	switch s.Phase {
	case controller.PhaseIdle:
		b.WriteString("No battle yet. Press s to start.\n")
	case controller.PhaseInBattle:
		fmt.Fprintf(&b, "── Round %d ──  %s: %d  |  %s: %d\n", s.Round, s.NameA, s.ScoreA, s.NameB, s.ScoreB)
		fmt.Fprintf(&b, "\n[A] %s\n\n[B] %s\n\n", s.VerseA, s.VerseB)
		if s.Voted {
			b.WriteString("Vote recorded. Press n for the next round.\n")
		} else {
			b.WriteString("Who won this round? Press a or b.\n")
		}
	case controller.PhaseFinished:
		b.WriteString("── Final ──\n")
		if s.Final != nil {
			b.WriteString(s.Final.Message)
			b.WriteString("\n")
		}
		b.WriteString("Press s for a rematch or r to reset.\n")
	}

	fmt.Fprint(out, b.String())
}
