package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/pkg/output"
	"github.com/ccollicutt/gnsstage/pkg/playback"
)

// SummaryOptions holds command-line options for the summary command.
type SummaryOptions struct {
	ConfigFile string
	Output     string
	Verbose    bool
	Quiet      bool
	NoWebhooks bool
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand() *cobra.Command {
	opts := &SummaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary [log-file]",
		Short: "Report position and altitude statistics without playback",
		Long: `Decode a GNSS log and report what playback would show, without rendering.

Reports the number of candidate lines, decoded positions and skipped lines,
altitude offset statistics, horizontal travel range and path length.

Example:
  gnsstage summary test.ubx
  gnsstage summary -o json test.ubx
  gnsstage summary -q -c stage.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (defaults are used when omitted)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show rejection reasons and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary line only")
	cmd.Flags().BoolVar(&opts.NoWebhooks, "no-webhooks", false, "Do not send configured webhooks")

	return cmd
}

func runSummary(cmd *cobra.Command, args []string, opts *SummaryOptions) error {
	ctx := runContext(cmd)
	started := time.Now()

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}

	path, err := inputPath(cfg, args)
	if err != nil {
		return err
	}

	// Read problems go to stderr so JSON output stays parseable
	batch, err := parseLog(ctx, newResolver(cfg, nil), path, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	plan := playback.NewPlan(cfg.GeoObserver(), batch.Fixes)
	report := output.NewReport(batch, plan, cfg.Input.Prefix, started)
	report.Metadata.ConfigFile = opts.ConfigFile

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if !opts.NoWebhooks {
		sendWebhooks(ctx, cfg, report, cmd.ErrOrStderr())
	}

	return nil
}
