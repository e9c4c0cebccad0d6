package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-assistant/src/config"
	"screen-assistant/src/singleinstance"
)

const delegateTimeout = 3 * time.Second

var errNoResident = errors.New("no running instance found")

type mainOptions struct {
	captureMode string
	apiKeyPath  string
	trigger     bool
	toggle      bool
	quit        bool
}

// delegator forwards an action to a running resident.
type delegator interface {
	Delegate(ctx context.Context, action singleinstance.Action) (bool, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-assistant",
		Short:         "Capture the screen and show a vision model's answer in a private overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.captureMode, "capture-mode", "", "Capture mode: fullscreen or region (overrides CAPTURE_MODE)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().BoolVar(&opts.trigger, "trigger", false, "Ask the running instance to capture and analyze")
	cmd.Flags().BoolVar(&opts.toggle, "toggle", false, "Ask the running instance to show or hide the overlay")
	cmd.Flags().BoolVar(&opts.quit, "quit", false, "Ask the running instance to exit")
	cmd.MarkFlagsMutuallyExclusive("trigger", "toggle", "quit")

	return cmd
}

// action returns the delegated action selected by flags, if any.
func (o mainOptions) action() (singleinstance.Action, bool) {
	switch {
	case o.trigger:
		return singleinstance.ActionTrigger, true
	case o.toggle:
		return singleinstance.ActionToggle, true
	case o.quit:
		return singleinstance.ActionQuit, true
	}
	return "", false
}

func runWithOptions(ctx context.Context, opts mainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if action, ok := opts.action(); ok {
		// .env may move the port range, so load it before scanning.
		_, _ = config.Load()
		return handleDelegation(ctx, singleinstance.NewClient(), action)
	}

	enableDPIAwareness()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runResident(ctx, config.LoadOptions{
		APIKeyPathOverride:  opts.apiKeyPath,
		CaptureModeOverride: opts.captureMode,
	})
}

func handleDelegation(ctx context.Context, client delegator, action singleinstance.Action) error {
	ctx, cancel := context.WithTimeout(ctx, delegateTimeout)
	defer cancel()

	delegated, err := client.Delegate(ctx, action)
	if err != nil {
		return fmt.Errorf("delegate %s: %w", strings.ToLower(string(action)), err)
	}
	if !delegated {
		return errNoResident
	}
	return nil
}

// normalizeLegacyArgs maps single-dash long flags (-trigger, -api-key-path=x)
// to the GNU form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"screen-assistant"}
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"capture-mode", "api-key-path", "trigger", "toggle", "quit"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
