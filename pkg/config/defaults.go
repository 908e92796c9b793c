package config

import (
	"os"
	"time"

	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// Default values for configuration.
const (
	DefaultLatitude            = 39.1961
	DefaultLongitude           = -77.2568
	DefaultAltitude            = 130.0
	DefaultStageRadius         = 25.0
	DefaultInputPath           = "test.ubx"
	DefaultFrameInterval       = 200 * time.Millisecond
	DefaultPollInterval        = 500 * time.Millisecond
	DefaultMaxPoints           = 1000
	DefaultMaxHorizontalOffset = 1000.0
	DefaultMaxVerticalOffset   = 100.0
	DefaultImagePath           = "frame.png"
	DefaultImageWidth          = 800
	DefaultImageHeight         = 600
	DefaultMQTTBroker          = "tcp://localhost:1883"
	DefaultMQTTClientID        = "gnsstage"
	DefaultMQTTTopic           = "gnsstage/frame"
	DefaultMQTTConnectTimeout  = 5 * time.Second
	DefaultWebhookTimeout      = 10 * time.Second
)

// Environment variable names.
const (
	EnvInputPath  = "GNSSTAGE_INPUT_PATH"
	EnvMQTTBroker = "GNSSTAGE_MQTT_BROKER"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Observer: ObserverConfig{
			Latitude:  DefaultLatitude,
			Longitude: DefaultLongitude,
			Altitude:  DefaultAltitude,
		},
		Stage: StageConfig{Radius: DefaultStageRadius},
		Input: InputConfig{
			Path:   DefaultInputPath,
			Prefix: sentence.DefaultPrefix,
		},
		Playback: PlaybackConfig{FrameInterval: DefaultFrameInterval},
		Live: LiveConfig{
			PollInterval:        DefaultPollInterval,
			MaxPoints:           DefaultMaxPoints,
			MaxHorizontalOffset: DefaultMaxHorizontalOffset,
			MaxVerticalOffset:   DefaultMaxVerticalOffset,
		},
		Render: RenderConfig{
			Outputs: []Output{OutputText},
			Image: ImageConfig{
				Path:   DefaultImagePath,
				Width:  DefaultImageWidth,
				Height: DefaultImageHeight,
			},
			MQTT: MQTTConfig{
				Broker:         DefaultMQTTBroker,
				ClientID:       DefaultMQTTClientID,
				Topic:          DefaultMQTTTopic,
				ConnectTimeout: DefaultMQTTConnectTimeout,
			},
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if path := os.Getenv(EnvInputPath); path != "" {
		c.Input.Path = path
	}
	if broker := os.Getenv(EnvMQTTBroker); broker != "" {
		c.Render.MQTT.Broker = broker
	}
}
