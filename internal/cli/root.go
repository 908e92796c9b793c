// Package cli provides the command-line interface for gnsstage.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/internal/cli/commands"
	"github.com/ccollicutt/gnsstage/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	name, isPlugin := pluginCandidate(rootCmd, os.Args[1:])

	// Try to find and execute a plugin
	if isPlugin {
		if pluginPath, err := plugins.FindPlugin(name); err == nil {
			return plugins.Execute(pluginPath, os.Args[2:])
		}
		// Not found, cobra reports the unknown command below
	}

	if err := rootCmd.Execute(); err != nil {
		// Show helpful plugin error message
		if isPlugin {
			_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(name))
			return 2
		}
		// SilenceErrors prevents Cobra from printing this
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument when it names no built-in
// command and could therefore be a plugin.
func pluginCandidate(rootCmd *cobra.Command, args []string) (string, bool) {
	// Skip flags (start with -)
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", false
	}
	// Check if it's a known built-in command
	if isBuiltinCommand(rootCmd, args[0]) {
		return "", false
	}
	return args[0], true
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Cobra adds help and completion lazily
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gnsstage",
		Short: "Replay GNSS receiver logs on a virtual stage",
		Long: `gnsstage replays the positions recorded in a GNSS receiver log around a
fixed observer, or follows a log that a receiver is still writing.

It:
  - Pulls GGA sentences out of noisy, partly binary receiver logs
  - Projects each fix to east/north/up meters from the observer
  - Draws the track as text, PNG frames, MQTT messages or plugin output

PLUGINS:
  Command plugins are standalone binaries named gnsstage-<command>.
  Renderer plugins are named gnsstage-render-<name> and read one JSON
  frame per line on stdin.

  Plugin locations (searched in order):
    1. Same directory as the gnsstage binary
    2. ~/.gnsstage/plugins/
    3. Anywhere in PATH

  Available plugins:
    record   Captures NMEA output from a serial receiver into a log file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewPlayCommand())
	rootCmd.AddCommand(commands.NewLiveCommand())
	rootCmd.AddCommand(commands.NewSummaryCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
