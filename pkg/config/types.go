// Package config provides configuration loading and validation for gnsstage.
package config

import (
	"time"

	"github.com/ccollicutt/gnsstage/pkg/geo"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Observer ObserverConfig  `yaml:"observer"`
	Stage    StageConfig     `yaml:"stage"`
	Input    InputConfig     `yaml:"input"`
	Playback PlaybackConfig  `yaml:"playback"`
	Live     LiveConfig      `yaml:"live"`
	Render   RenderConfig    `yaml:"render"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// ObserverConfig is the fixed origin of the local frame.
type ObserverConfig struct {
	// Latitude and Longitude are signed decimal degrees.
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	// Altitude is meters above sea level.
	Altitude float64 `yaml:"altitude"`
}

// StageConfig describes the platform drawn around the observer.
type StageConfig struct {
	// Radius is in meters.
	Radius float64 `yaml:"radius"`
}

// InputConfig selects the log file and the sentences read from it.
type InputConfig struct {
	// Path is the log file. Command-line arguments override it.
	Path string `yaml:"path"`

	// Prefix is the sentence tag to accept, e.g. $GNGGA or $GPGGA.
	Prefix string `yaml:"prefix"`

	// RequireChecksum verifies the trailing NMEA checksum of every sentence.
	RequireChecksum bool `yaml:"require_checksum,omitempty"`
}

// PlaybackConfig controls batch replay.
type PlaybackConfig struct {
	// FrameInterval is the pause after each frame.
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// LiveConfig controls live tailing.
type LiveConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxPoints caps the number of positions kept on screen.
	MaxPoints int `yaml:"max_points"`

	// Positions farther than these offsets from the observer are skipped.
	MaxHorizontalOffset float64 `yaml:"max_horizontal_offset"`
	MaxVerticalOffset   float64 `yaml:"max_vertical_offset"`

	// ScanPastParseFailures keeps looking further back when the most recent
	// well-formed sentence fails to decode.
	ScanPastParseFailures bool `yaml:"scan_past_parse_failures,omitempty"`
}

// Output names a frame sink.
type Output string

const (
	OutputText   Output = "text"
	OutputImage  Output = "image"
	OutputMQTT   Output = "mqtt"
	OutputPlugin Output = "plugin"
)

// RenderConfig selects and configures frame sinks.
type RenderConfig struct {
	Outputs []Output     `yaml:"outputs"`
	Image   ImageConfig  `yaml:"image"`
	MQTT    MQTTConfig   `yaml:"mqtt"`
	Plugin  PluginConfig `yaml:"plugin"`
}

// Has reports whether o is among the selected outputs.
func (r *RenderConfig) Has(o Output) bool {
	for _, out := range r.Outputs {
		if out == o {
			return true
		}
	}
	return false
}

// ImageConfig configures the PNG snapshot sink.
type ImageConfig struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Topic          string        `yaml:"topic"`
	QoS            byte          `yaml:"qos"`
	Retained       bool          `yaml:"retained,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// PluginConfig names a gnsstage-render-<name> binary.
type PluginConfig struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnSkips fires only when some lines did not yield a position (default).
	WebhookTriggerOnSkips WebhookTrigger = "on_skips"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending run reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_skips" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// GeoObserver returns the observer and stage as a projection origin.
func (c *Config) GeoObserver() geo.Observer {
	return geo.Observer{
		Latitude:    c.Observer.Latitude,
		Longitude:   c.Observer.Longitude,
		Altitude:    c.Observer.Altitude,
		StageRadius: c.Stage.Radius,
	}
}
