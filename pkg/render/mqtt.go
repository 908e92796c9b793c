package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/playback"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

// MQTT defaults.
const (
	DefaultMQTTBroker   = "tcp://localhost:1883"
	DefaultMQTTClientID = "gnsstage"
	DefaultMQTTTopic    = "gnsstage/frame"
	DefaultMQTTTimeout  = 5 * time.Second
)

// Publisher is the subset of mqtt.Client the MQTT renderer uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOptions configures an MQTT renderer.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

func (o *MQTTOptions) applyDefaults() {
	if o.Broker == "" {
		o.Broker = DefaultMQTTBroker
	}
	if o.ClientID == "" {
		o.ClientID = DefaultMQTTClientID
	}
	if o.Topic == "" {
		o.Topic = DefaultMQTTTopic
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultMQTTTimeout
	}
}

// FrameMessage is the JSON payload published per frame. The path itself is
// not sent; subscribers accumulate positions.
type FrameMessage struct {
	Mode       playback.Mode     `json:"mode"`
	Title      string            `json:"title"`
	Step       int               `json:"step"`
	Total      int               `json:"total"`
	Time       string            `json:"time"`
	Position   geo.PlanarOffset  `json:"position"`
	Points     int               `json:"points"`
	Vertical   trajectory.Limits `json:"vertical"`
	Distance2D float64           `json:"distance_2d"`
	Distance3D float64           `json:"distance_3d"`
	PathLength float64           `json:"path_length"`
}

// NewFrameMessage builds the payload for f.
func NewFrameMessage(f *playback.Frame) FrameMessage {
	return FrameMessage{
		Mode:       f.Mode,
		Title:      f.Title,
		Step:       f.Step,
		Total:      f.Total,
		Time:       f.Time,
		Position:   f.Position,
		Points:     len(f.Path),
		Vertical:   f.Vertical,
		Distance2D: f.Distance2D,
		Distance3D: f.Distance3D,
		PathLength: f.PathLength,
	}
}

// MQTT publishes each frame as a JSON message.
type MQTT struct {
	client  Publisher
	opts    MQTTOptions
	timeout time.Duration
}

// DialMQTT connects to the broker and returns a renderer publishing on opts.Topic.
func DialMQTT(opts MQTTOptions) (*MQTT, error) {
	opts.applyDefaults()

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out after %s", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}
	return NewMQTT(client, opts), nil
}

// NewMQTT creates a renderer on an already connected client.
func NewMQTT(client Publisher, opts MQTTOptions) *MQTT {
	opts.applyDefaults()
	return &MQTT{client: client, opts: opts, timeout: opts.ConnectTimeout}
}

// Render publishes f and waits for the broker to accept it.
func (m *MQTT) Render(ctx context.Context, f *playback.Frame) error {
	payload, err := json.Marshal(NewFrameMessage(f))
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	token := m.client.Publish(m.opts.Topic, m.opts.QoS, m.opts.Retained, payload)
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publishing to %s: timed out after %s", m.opts.Topic, m.timeout)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", m.opts.Topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
