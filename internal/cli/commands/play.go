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

	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/output"
	"github.com/ccollicutt/gnsstage/pkg/playback"
	"github.com/ccollicutt/gnsstage/pkg/webhook"
)

// PlayOptions holds command-line options for the play command.
type PlayOptions struct {
	ConfigFile    string
	FrameInterval time.Duration
	Outputs       []string
	Verbose       bool
	NoWebhooks    bool
}

// NewPlayCommand creates the play command.
func NewPlayCommand() *cobra.Command {
	opts := &PlayOptions{}

	cmd := &cobra.Command{
		Use:   "play [log-file]",
		Short: "Replay a recorded GNSS log frame by frame",
		Long: `Replay every valid position in a GNSS log around the observer.

The log is decoded, cleaned and projected onto a local east/north/up frame
centred on the observer. One frame is rendered per position with a fixed
pause in between. Press Ctrl+C to stop early; the summary is still printed.

The log file defaults to input.path from the configuration.

Exit codes:
  0 - Playback completed or was stopped by the user
  2 - Configuration or runtime error

Example:
  gnsstage play test.ubx
  gnsstage play -c stage.yaml --output text,image`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (defaults are used when omitted)")
	cmd.Flags().DurationVar(&opts.FrameInterval, "interval", 0, "Pause after each frame (overrides playback.frame_interval)")
	cmd.Flags().StringSliceVar(&opts.Outputs, "output", nil, "Frame outputs (text|image|mqtt|plugin), overrides render.outputs")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every skipped line")
	cmd.Flags().BoolVar(&opts.NoWebhooks, "no-webhooks", false, "Do not send configured webhooks")

	return cmd
}

func runPlay(cmd *cobra.Command, args []string, opts *PlayOptions) error {
	ctx := runContext(cmd)
	out := cmd.OutOrStdout()
	started := time.Now()

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyRenderOverrides(cfg, opts.Outputs, opts.FrameInterval); err != nil {
		return err
	}

	path, err := inputPath(cfg, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Loading and cleaning GNSS data from %s...\n", path)
	r := newResolver(cfg, newSkipLogger(opts.Verbose, cmd.ErrOrStderr()))
	batch, err := parseLog(ctx, r, path, out)
	if err != nil {
		return err
	}

	plan := playback.NewPlan(cfg.GeoObserver(), batch.Fixes)
	report := output.NewReport(batch, plan, cfg.Input.Prefix, started)
	report.Metadata.ConfigFile = opts.ConfigFile

	output.WriteCounts(out, report)
	if !report.HasPositions() {
		output.WriteNoData(out, report)
		if !opts.NoWebhooks {
			sendWebhooks(ctx, cfg, report, cmd.ErrOrStderr())
		}
		return nil
	}

	fmt.Fprintln(out)
	output.WriteAltitude(out, report)
	fmt.Fprintln(out)

	renderers, err := buildRenderers(cfg, out)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	frames, playErr := playback.NewPlayer(renderers,
		playback.WithFrameInterval(cfg.Playback.FrameInterval),
	).Play(sigCtx, plan)
	stop()

	closeErr := renderers.Close()

	report.Summary.FramesRendered = frames
	switch {
	case errors.Is(playErr, context.Canceled):
		fmt.Fprintln(out, "\nPlayback stopped by user")
		report.Metadata.Interrupted = true
	case playErr != nil:
		return fmt.Errorf("playback failed: %w", playErr)
	}
	if closeErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: closing renderers: %v\n", closeErr)
	}

	fmt.Fprintln(out)
	output.WriteSummary(out, report)

	report.Metadata.Duration = time.Since(started)
	if !opts.NoWebhooks {
		sendWebhooks(ctx, cfg, report, cmd.ErrOrStderr())
	}

	return nil
}

// applyRenderOverrides replaces configured outputs and the frame interval with
// command-line values and re-validates the result.
func applyRenderOverrides(cfg *config.Config, outputs []string, interval time.Duration) error {
	if len(outputs) == 0 && interval == 0 {
		return nil
	}
	if len(outputs) > 0 {
		cfg.Render.Outputs = cfg.Render.Outputs[:0]
		for _, o := range outputs {
			cfg.Render.Outputs = append(cfg.Render.Outputs, config.Output(o))
		}
	}
	if interval != 0 {
		cfg.Playback.FrameInterval = interval
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// sendWebhooks posts the report to matching webhooks. Failures are written to
// w and never fail the command.
func sendWebhooks(ctx context.Context, cfg *config.Config, report *output.Report, w io.Writer) {
	if len(cfg.Webhooks) == 0 {
		return
	}

	// A cancelled run still reports; give the requests their own context.
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	for _, res := range webhook.NewClient().SendAll(ctx, cfg.Webhooks, report) {
		if !res.Fired {
			continue
		}
		if res.Response.Success() {
			fmt.Fprintf(w, "Webhook %s: sent (%d, %s)\n",
				res.Name, res.Response.StatusCode, res.Response.Duration.Round(time.Millisecond))
		} else if res.Response.Error != nil {
			fmt.Fprintf(w, "Webhook %s: failed (%v)\n", res.Name, res.Response.Error)
		} else {
			fmt.Fprintf(w, "Webhook %s: failed (status %d)\n", res.Name, res.Response.StatusCode)
		}
	}
}
