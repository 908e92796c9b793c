package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/pkg/playback"
	"github.com/ccollicutt/gnsstage/pkg/render"
	"github.com/ccollicutt/gnsstage/pkg/tail"
)

// LiveOptions holds command-line options for the live command.
type LiveOptions struct {
	ConfigFile   string
	PollInterval time.Duration
	Outputs      []string
	Verbose      bool
}

// NewLiveCommand creates the live command.
func NewLiveCommand() *cobra.Command {
	opts := &LiveOptions{}

	cmd := &cobra.Command{
		Use:   "live [log-file]",
		Short: "Track a GNSS log that is still being written",
		Long: `Follow a GNSS log while a receiver appends to it.

The file size is checked on every poll. When it changes, the most recent
valid position is decoded, checked against the live offset limits and drawn
with the recent path. Missing files and read errors are reported and polling
continues. Press Ctrl+C to stop.

Example:
  gnsstage live /dev/shm/receiver.ubx
  gnsstage live -c stage.yaml --poll 250ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (defaults are used when omitted)")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll", 0, "Time between size checks (overrides live.poll_interval)")
	cmd.Flags().StringSliceVar(&opts.Outputs, "output", nil, "Frame outputs (text|image|mqtt|plugin), overrides render.outputs")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log skipped lines and print poll statistics")

	return cmd
}

func runLive(cmd *cobra.Command, args []string, opts *LiveOptions) error {
	ctx := runContext(cmd)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyRenderOverrides(cfg, opts.Outputs, 0); err != nil {
		return err
	}
	if opts.PollInterval > 0 {
		cfg.Live.PollInterval = opts.PollInterval
	}

	path, err := inputPath(cfg, args)
	if err != nil {
		return err
	}

	poller, err := tail.NewPoller(tail.Config{
		Path:     path,
		Interval: cfg.Live.PollInterval,
	}, newResolver(cfg, newSkipLogger(opts.Verbose, cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	tracker := playback.NewTracker(cfg.GeoObserver(),
		playback.WithCapacity(cfg.Live.MaxPoints),
		playback.WithBounds(cfg.Live.MaxHorizontalOffset, cfg.Live.MaxVerticalOffset),
	)

	renderers, err := buildRenderers(cfg, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nStarting live mode - monitoring %s\n", path)
	fmt.Fprintln(out, "Press Ctrl+C to stop live playback")

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := poller.Run(sigCtx, func(ev tail.Event) {
		handleLiveEvent(sigCtx, out, path, ev, tracker, renderers)
	})

	if err := renderers.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: closing renderers: %v\n", err)
	}

	if !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("live mode failed: %w", runErr)
	}

	fmt.Fprintln(out, "\nLive playback stopped by user")
	if opts.Verbose {
		s := poller.Stats()
		fmt.Fprintf(out, "Polls: %d, updates: %d, unchanged: %d, errors: %d, points: %d\n",
			s.Polls, s.Updates, s.Skips, s.Errors, tracker.Len())
	}
	return nil
}

// handleLiveEvent reports one poll outcome and renders accepted fixes.
// Nothing here stops the loop.
func handleLiveEvent(ctx context.Context, out io.Writer, path string, ev tail.Event, tracker *playback.Tracker, r render.Renderer) {
	switch ev.Kind {
	case tail.KindWaiting:
		fmt.Fprintf(out, "Waiting for file %s...\n", path)

	case tail.KindNoFix:
		fmt.Fprintln(out, "No valid position found in recent data")

	case tail.KindError:
		fmt.Fprintf(out, "Error in live mode: %v\n", ev.Err)

	case tail.KindFix:
		frame, err := tracker.Accept(ev.Fix)
		var unreasonable *playback.UnreasonableError
		if errors.As(err, &unreasonable) {
			fmt.Fprintf(out, "Skipping unreasonable position: %s\n", unreasonable.Coordinates())
			return
		}
		if err != nil {
			fmt.Fprintf(out, "Error in live mode: %v\n", err)
			return
		}
		if err := r.Render(ctx, frame); err != nil && ctx.Err() == nil {
			fmt.Fprintf(out, "Error in live mode: %v\n", err)
		}
	}
}
