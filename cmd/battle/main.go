package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/rap-battle-backend/internal/controller"
	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
)

const releaseVersion = "0.1.0"

type options struct {
	api     string
	agentA  string
	agentB  string
	timeout time.Duration
}

func main() {
	cobra.CheckErr(newCmd(controller.NewHTTP()).Execute())
}

func newCmd(c *controller.Controller) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "battle",
		Short:         "Judge a three round rap battle between two agents.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), c, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.api, "api", os.Getenv("RAPBATTLE_API"), "backend API base URL (env: RAPBATTLE_API)")
	fs.StringVar(&opts.agentA, "agent-a", engine.DefaultAgentA, "name of the first agent")
	fs.StringVar(&opts.agentB, "agent-b", engine.DefaultAgentB, "name of the second agent")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for each API call")

	return cmd
}

const help = "keys: s start  a/b vote  n next  l reload  r reset  q quit"

func run(ctx context.Context, in io.Reader, out io.Writer, c *controller.Controller, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(out, help)
	render(out, c.State())

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		key := strings.ToLower(strings.TrimSpace(sc.Text()))
		if key == "" {
			continue
		}
		if key == "q" {
			return nil
		}

		if err := dispatch(ctx, c, opts, key); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		render(out, c.State())
	}
	return sc.Err()
}

func dispatch(ctx context.Context, c *controller.Controller, opts *options, key string) error {
	callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	switch key {
	case "s":
		return c.StartBattle(callCtx, opts.api, opts.agentA, opts.agentB)
	case "a":
		return c.Vote(callCtx, engine.WinnerA)
	case "b":
		return c.Vote(callCtx, engine.WinnerB)
	case "n":
		return c.NextRound(callCtx)
	case "l":
		return c.LoadRound(callCtx)
	case "r":
		c.Reset()
		return nil
	default:
		return fmt.Errorf("unknown key %q (%s)", key, help)
	}
}
