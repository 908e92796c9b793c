package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/ccollicutt/gnsstage/pkg/playback"
)

// Plugin streams frames as JSON lines to the stdin of an external process.
type Plugin struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
}

// StartPlugin launches the renderer binary at path. Its stdout and stderr are
// passed through to ours.
func StartPlugin(path string, args ...string) (*Plugin, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening plugin stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting renderer plugin %s: %w", path, err)
	}
	return &Plugin{cmd: cmd, stdin: stdin, enc: json.NewEncoder(stdin)}, nil
}

// Render writes f as one JSON line.
func (p *Plugin) Render(ctx context.Context, f *playback.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.enc.Encode(f); err != nil {
		return fmt.Errorf("writing to renderer plugin: %w", err)
	}
	return nil
}

// Close closes the plugin's stdin and waits for it to exit.
func (p *Plugin) Close() error {
	if err := p.stdin.Close(); err != nil {
		return fmt.Errorf("closing renderer plugin: %w", err)
	}
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("renderer plugin exited: %w", err)
	}
	return nil
}
