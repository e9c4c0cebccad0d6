package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"screen-assistant/src/config"
	"screen-assistant/src/singleinstance"
)

type stressOptions struct {
	n        int
	action   string
	deadline time.Duration
}

type counts struct {
	ok, busy, absent, err int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_, _ = config.Load()
	opts := &stressOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-delegate",
		Short:         "Fire concurrent delegated actions at a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := singleinstance.ParseAction(opts.action)
			if err != nil {
				return err
			}
			c := stress(singleinstance.NewClient(), action, opts.n, opts.deadline)
			report(out, opts.n, c)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.action, "action", "toggle", "trigger|toggle|quit")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

type delegator interface {
	Delegate(ctx context.Context, action singleinstance.Action) (bool, error)
}

func stress(client delegator, action singleinstance.Action, n int, deadline time.Duration) counts {
	var (
		wg sync.WaitGroup
		c  counts
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			delegated, err := client.Delegate(ctx, action)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&c.busy, 1)
			case err != nil:
				atomic.AddInt32(&c.err, 1)
			case !delegated:
				atomic.AddInt32(&c.absent, 1)
			default:
				atomic.AddInt32(&c.ok, 1)
			}
		}()
	}
	wg.Wait()
	return c
}

func report(out io.Writer, n int, c counts) {
	color.New(color.FgCyan, color.Bold).Fprintf(out, "launched=%d ", n)
	color.New(color.FgGreen).Fprintf(out, "ok=%d ", c.ok)
	color.New(color.FgYellow).Fprintf(out, "busy=%d ", c.busy)
	color.New(color.FgHiBlack).Fprintf(out, "absent=%d ", c.absent)
	color.New(color.FgRed).Fprintf(out, "err=%d\n", c.err)
}
