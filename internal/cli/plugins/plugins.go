// Package plugins provides exec-based plugin support for gnsstage.
//
// Command plugins are binaries named gnsstage-<command>, discovered and run
// when an unknown command is invoked. Renderer plugins are binaries named
// gnsstage-render-<name> that read one JSON frame per line on stdin.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Binary name prefixes.
const (
	CommandPrefix  = "gnsstage-"
	RendererPrefix = "gnsstage-render-"
)

// KnownPlugins lists plugins that have official implementations available.
// These get special error messages directing users where to obtain them.
var KnownPlugins = map[string]string{
	"record": "Captures NMEA output from a serial receiver into a log file for live mode.",
}

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// FindPlugin searches for a command plugin named gnsstage-<command>.
// It searches in the following locations in order:
//  1. Same directory as the gnsstage binary
//  2. ~/.gnsstage/plugins/
//  3. Anywhere in PATH
//
// Returns the full path to the plugin binary if found.
func FindPlugin(command string) (string, error) {
	return find(CommandPrefix + command)
}

// FindRenderer searches for a renderer plugin named gnsstage-render-<name>
// in the same locations as FindPlugin.
func FindRenderer(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("renderer name is required: %w", ErrPluginNotFound)
	}
	path, err := find(RendererPrefix + name)
	if err != nil {
		return "", fmt.Errorf("renderer %q: %w", name, err)
	}
	return path, nil
}

func find(binary string) (string, error) {
	// 1. Check same directory as gnsstage binary
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), binary)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	// 2. Check ~/.gnsstage/plugins/
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(homeDir, ".gnsstage", "plugins", binary)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	// 3. Check PATH
	if path, err := exec.LookPath(binary); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// Execute runs a plugin with the given arguments.
// It connects stdin, stdout, and stderr to the plugin process
// and returns the plugin's exit code.
func Execute(pluginPath string, args []string) int {
	cmd := exec.Command(pluginPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		// Pass the plugin's own exit code through
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 1
	}

	return 0
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
// If the command is a known plugin, includes information about what it does.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("unknown command %q for \"gnsstage\"\n", command))

	// Known plugins get a description
	if info, ok := KnownPlugins[command]; ok {
		sb.WriteString(fmt.Sprintf("\n%q is available as a plugin.\n", command))
		sb.WriteString(info)
		sb.WriteString("\n\nInstall the plugin binary as one of:\n")
	} else {
		sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	}

	// Installation locations, in search order
	sb.WriteString(fmt.Sprintf("  - gnsstage-%s in the same directory as gnsstage\n", command))
	sb.WriteString(fmt.Sprintf("  - ~/.gnsstage/plugins/gnsstage-%s\n", command))
	sb.WriteString(fmt.Sprintf("  - gnsstage-%s anywhere in your PATH\n", command))

	sb.WriteString("\nRun 'gnsstage --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	// Any execute bit
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
