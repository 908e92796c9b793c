package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnvironment returns the default configuration with environment
// overrides applied, for runs without a config file.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills zero values with defaults.
func Validate(cfg *Config) error {
	if err := validateObserver(&cfg.Observer); err != nil {
		return fmt.Errorf("observer: %w", err)
	}

	if cfg.Stage.Radius <= 0 {
		return fmt.Errorf("stage: radius must be positive, got %g", cfg.Stage.Radius)
	}

	if err := validateInput(&cfg.Input); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	if cfg.Playback.FrameInterval < 0 {
		return errors.New("playback: frame_interval must not be negative")
	}
	if cfg.Playback.FrameInterval == 0 {
		cfg.Playback.FrameInterval = DefaultFrameInterval
	}

	if err := validateLive(&cfg.Live); err != nil {
		return fmt.Errorf("live: %w", err)
	}

	if err := validateRender(&cfg.Render); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateObserver(o *ObserverConfig) error {
	if o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("latitude %g out of range [-90, 90]", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("longitude %g out of range [-180, 180]", o.Longitude)
	}
	if o.Altitude < sentence.MinAltitude || o.Altitude > sentence.MaxAltitude {
		return fmt.Errorf("altitude %g out of range [%g, %g]", o.Altitude, sentence.MinAltitude, sentence.MaxAltitude)
	}
	return nil
}

func validateInput(in *InputConfig) error {
	if in.Prefix == "" {
		in.Prefix = sentence.DefaultPrefix
	}
	if len(in.Prefix) != 6 || !strings.HasPrefix(in.Prefix, "$") || !strings.HasSuffix(in.Prefix, sentence.TypeSuffix) {
		return fmt.Errorf("prefix %q must be a 6-character sentence tag like $GNGGA", in.Prefix)
	}
	return nil
}

func validateLive(l *LiveConfig) error {
	if l.PollInterval < 0 {
		return errors.New("poll_interval must not be negative")
	}
	if l.PollInterval == 0 {
		l.PollInterval = DefaultPollInterval
	}
	if l.MaxPoints < 0 {
		return fmt.Errorf("max_points must be positive, got %d", l.MaxPoints)
	}
	if l.MaxPoints == 0 {
		l.MaxPoints = DefaultMaxPoints
	}
	if l.MaxHorizontalOffset < 0 || l.MaxVerticalOffset < 0 {
		return errors.New("max_horizontal_offset and max_vertical_offset must not be negative")
	}
	if l.MaxHorizontalOffset == 0 {
		l.MaxHorizontalOffset = DefaultMaxHorizontalOffset
	}
	if l.MaxVerticalOffset == 0 {
		l.MaxVerticalOffset = DefaultMaxVerticalOffset
	}
	return nil
}

func validateRender(r *RenderConfig) error {
	if len(r.Outputs) == 0 {
		r.Outputs = []Output{OutputText}
	}
	for _, out := range r.Outputs {
		switch out {
		case OutputText, OutputImage, OutputMQTT, OutputPlugin:
		default:
			return fmt.Errorf("invalid output %q (must be text, image, mqtt, or plugin)", out)
		}
	}

	if r.Has(OutputImage) {
		if r.Image.Path == "" {
			return errors.New("image.path is required for image output")
		}
		if r.Image.Width < 0 || r.Image.Height < 0 {
			return errors.New("image width and height must not be negative")
		}
		if r.Image.Width == 0 {
			r.Image.Width = DefaultImageWidth
		}
		if r.Image.Height == 0 {
			r.Image.Height = DefaultImageHeight
		}
	}

	if r.Has(OutputMQTT) {
		if r.MQTT.Broker == "" {
			return errors.New("mqtt.broker is required for mqtt output")
		}
		if r.MQTT.Topic == "" {
			return errors.New("mqtt.topic is required for mqtt output")
		}
		if r.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", r.MQTT.QoS)
		}
		if r.MQTT.ConnectTimeout <= 0 {
			r.MQTT.ConnectTimeout = DefaultMQTTConnectTimeout
		}
	}

	if r.Has(OutputPlugin) && r.Plugin.Name == "" {
		return errors.New("plugin.name is required for plugin output")
	}

	return nil
}

// ValidateWebhook checks wh and fills in its defaults. Env var tokens are expanded.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnSkips, WebhookTriggerAlways, WebhookTriggerNever:
		default:
			return fmt.Errorf("invalid trigger %q (must be on_skips, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnSkips
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}

	return s
}
