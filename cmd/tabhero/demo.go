package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabhero/internal/feed"
	"github.com/verte-zerg/tabhero/internal/generator"
)

var (
	demoRate    time.Duration
	demoCount   int
	demoEmit    bool
	demoSeed    int64
	demoPersist bool
	demoPlain   bool
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Simulate editor activity with accepted completions",
		Args:  cobra.NoArgs,
		RunE:  runDemoCmd,
	}
	cmd.Flags().DurationVar(&demoRate, "rate", 400*time.Millisecond, "delay between generated edits")
	cmd.Flags().IntVar(&demoCount, "count", 0, "number of edits to generate (0 = until interrupted)")
	cmd.Flags().BoolVar(&demoEmit, "emit", false, "write the generated feed as JSONL instead of scoring it")
	cmd.Flags().Int64Var(&demoSeed, "seed", 0, "random seed (0 = time based)")
	cmd.Flags().BoolVar(&demoPersist, "persist", false, "record demo scores in the stats database")
	cmd.Flags().BoolVar(&demoPlain, "plain", false, "log scores instead of running the live view")
	return cmd
}

func runDemoCmd(cmd *cobra.Command, _ []string) error {
	if demoRate < 0 {
		return fmt.Errorf("--rate must be >= 0")
	}
	if demoCount < 0 {
		return fmt.Errorf("--count must be >= 0")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := generator.New()
	if demoSeed != 0 {
		gen = generator.NewWithSeed(demoSeed)
	}

	if demoEmit {
		out := cmd.OutOrStdout()
		var writeErr error
		err := gen.Run(ctx, demoRate, demoCount, func(step generator.Step) {
			if writeErr != nil {
				return
			}
			writeErr = feed.Encode(out, feed.ChangeLine(step.Event))
		})
		if writeErr != nil {
			return fmt.Errorf("failed to write feed: %w", writeErr)
		}
		return ignoreCanceled(err)
	}

	interactive := !demoPlain && isTerminal(os.Stdout)
	a, err := openApp(cmd, appOptions{fileLog: interactive, memory: !demoPersist})
	if err != nil {
		return err
	}
	defer a.Close()

	run := func(ctx context.Context) error {
		return gen.Run(ctx, demoRate, demoCount, func(step generator.Step) {
			a.engine.OnChange(step.Event)
		})
	}
	if !interactive {
		return runPlain(ctx, cmd.OutOrStdout(), a, run)
	}
	return runLive(ctx, a, run, "demo", false)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
