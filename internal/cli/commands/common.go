package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/internal/cli/plugins"
	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/reader"
	"github.com/ccollicutt/gnsstage/pkg/render"
	"github.com/ccollicutt/gnsstage/pkg/resolver"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// runContext returns the command context, or a background context when the
// command was not started with one.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig loads path, or the defaults plus environment overrides when path
// is empty.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.FromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// inputPath picks the log file: the first argument wins over the config.
func inputPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.Input.Path == "" {
		return "", fmt.Errorf("no log file given and input.path is not set")
	}
	return cfg.Input.Path, nil
}

// newSkipLogger returns a logger for per-line skip messages, or nil when
// verbose output is off.
func newSkipLogger(verbose bool, w io.Writer) *log.Logger {
	if !verbose {
		return nil
	}
	return log.New(w, "", 0)
}

func newReader(cfg *config.Config) *reader.Reader {
	return reader.New(reader.WithPrefix(cfg.Input.Prefix))
}

func newParser(cfg *config.Config) *sentence.Parser {
	return sentence.NewParser(
		sentence.WithPrefix(cfg.Input.Prefix),
		sentence.WithChecksum(cfg.Input.RequireChecksum),
	)
}

// newResolver builds a resolver from the input and live settings.
func newResolver(cfg *config.Config, logger *log.Logger) *resolver.Resolver {
	return resolver.New(
		resolver.WithReader(newReader(cfg)),
		resolver.WithParser(newParser(cfg)),
		resolver.WithLogger(logger),
		resolver.WithScanPastParseFailures(cfg.Live.ScanPastParseFailures),
	)
}

// parseLog decodes every fix in path. A missing or unreadable log is reported
// on w and yields an empty batch, so batch runs end with the no-data message.
// Other failures, such as cancellation, are returned.
func parseLog(ctx context.Context, r *resolver.Resolver, path string, w io.Writer) (*resolver.Batch, error) {
	batch, err := r.ParseAll(ctx, path)
	if err == nil {
		return batch, nil
	}

	var readErr *reader.ReadError
	switch {
	case errors.Is(err, reader.ErrNotFound):
		fmt.Fprintf(w, "File %s not found.\n", path)
	case errors.As(err, &readErr):
		fmt.Fprintf(w, "Error reading file: %v\n", readErr.Err)
	default:
		return nil, fmt.Errorf("loading log: %w", err)
	}

	// Empty batch
	return &resolver.Batch{Path: path}, nil
}

// buildRenderers creates the configured frame sinks. Text frames go to w.
// On error every sink created so far is closed.
func buildRenderers(cfg *config.Config, w io.Writer) (*render.Multi, error) {
	var sinks []render.Renderer
	fail := func(err error) (*render.Multi, error) {
		_ = render.NewMulti(sinks...).Close()
		return nil, err
	}

	for _, out := range cfg.Render.Outputs {
		switch out {
		case config.OutputText:
			sinks = append(sinks, render.NewText(w))

		case config.OutputImage:
			img, err := render.NewImage(render.ImageOptions{
				Path:   cfg.Render.Image.Path,
				Width:  cfg.Render.Image.Width,
				Height: cfg.Render.Image.Height,
			})
			if err != nil {
				return fail(fmt.Errorf("creating image renderer: %w", err))
			}
			sinks = append(sinks, img)

		case config.OutputMQTT:
			m := cfg.Render.MQTT
			sink, err := render.DialMQTT(render.MQTTOptions{
				Broker:         m.Broker,
				ClientID:       m.ClientID,
				Topic:          m.Topic,
				QoS:            m.QoS,
				Retained:       m.Retained,
				ConnectTimeout: m.ConnectTimeout,
			})
			if err != nil {
				return fail(fmt.Errorf("creating mqtt renderer: %w", err))
			}
			sinks = append(sinks, sink)

		case config.OutputPlugin:
			path, err := plugins.FindRenderer(cfg.Render.Plugin.Name)
			if err != nil {
				return fail(fmt.Errorf("creating plugin renderer: %w", err))
			}
			p, err := render.StartPlugin(path, cfg.Render.Plugin.Args...)
			if err != nil {
				return fail(fmt.Errorf("creating plugin renderer: %w", err))
			}
			sinks = append(sinks, p)

		default:
			return fail(fmt.Errorf("unknown output %q", out))
		}
	}

	return render.NewMulti(sinks...), nil
}
