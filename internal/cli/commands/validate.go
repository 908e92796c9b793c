package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a gnsstage configuration file without reading any log.

Checks:
  - YAML syntax
  - Observer coordinates and stage radius
  - Sentence prefix
  - Live mode limits
  - Output-specific requirements (image path, MQTT broker and topic, plugin name)
  - Webhook URLs and triggers
  - Input file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := runContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Observer:     %s\n", cfg.GeoObserver())
	fmt.Fprintf(out, "  Stage radius: %.1f m\n", cfg.Stage.Radius)
	fmt.Fprintf(out, "  Prefix:       %s\n", cfg.Input.Prefix)
	fmt.Fprintf(out, "  Frame pause:  %s\n", cfg.Playback.FrameInterval)
	fmt.Fprintf(out, "  Live poll:    %s (max %d points)\n", cfg.Live.PollInterval, cfg.Live.MaxPoints)
	fmt.Fprintf(out, "  Webhooks:     %d\n", len(cfg.Webhooks))

	// List outputs
	fmt.Fprintf(out, "\nOutputs:\n")
	for i, o := range cfg.Render.Outputs {
		switch o {
		case config.OutputImage:
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, o, cfg.Render.Image.Path)
		case config.OutputMQTT:
			fmt.Fprintf(out, "  %d. [%s] %s %s\n", i+1, o, cfg.Render.MQTT.Broker, cfg.Render.MQTT.Topic)
		case config.OutputPlugin:
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, o, cfg.Render.Plugin.Name)
		default:
			fmt.Fprintf(out, "  %d. [%s]\n", i+1, o)
		}
	}

	// Check the input file exists (warning only; live mode waits for it)
	if cfg.Input.Path != "" {
		if info, err := os.Stat(cfg.Input.Path); err != nil {
			fmt.Fprintf(out, "\nWarning: Input file %s is not readable: %v\n", cfg.Input.Path, err)
		} else {
			fmt.Fprintf(out, "\nInput file: %s (%d bytes)\n", cfg.Input.Path, info.Size())
		}
	}

	return nil
}
