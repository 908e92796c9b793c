package render

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	sent         []published
	next         *fakeToken
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.sent = append(p.sent, published{topic, qos, retained, payload.([]byte)})
	if p.next != nil {
		return p.next
	}
	return newToken(nil, true)
}

func (p *fakePublisher) Disconnect(uint) { p.disconnected = true }

func TestMQTT_PublishesFrame(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, MQTTOptions{QoS: 1, Retained: true})

	if err := m.Render(context.Background(), sampleFrame()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.sent))
	}
	msg := pub.sent[0]
	if msg.topic != DefaultMQTTTopic || msg.qos != 1 || !msg.retained {
		t.Errorf("message = %+v", msg)
	}

	var got FrameMessage
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Step != 6 || got.Points != 6 || got.Time != "120005" {
		t.Errorf("payload = %+v", got)
	}

	if err := m.Close(); err != nil || !pub.disconnected {
		t.Errorf("Close() = %v, disconnected %v", err, pub.disconnected)
	}
}

func TestMQTT_PublishError(t *testing.T) {
	pub := &fakePublisher{next: newToken(errors.New("not connected"), true)}
	m := NewMQTT(pub, MQTTOptions{Topic: "t"})
	if err := m.Render(context.Background(), sampleFrame()); err == nil {
		t.Error("Render() should surface the publish error")
	}
}

func TestMQTT_PublishTimeout(t *testing.T) {
	pub := &fakePublisher{next: newToken(nil, false)}
	m := NewMQTT(pub, MQTTOptions{ConnectTimeout: 10 * time.Millisecond})
	if err := m.Render(context.Background(), sampleFrame()); err == nil {
		t.Error("Render() should time out")
	}
}

func TestMQTT_Canceled(t *testing.T) {
	pub := &fakePublisher{next: newToken(nil, false)}
	m := NewMQTT(pub, MQTTOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Render(ctx, sampleFrame()); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestMQTTOptions_Defaults(t *testing.T) {
	var o MQTTOptions
	o.applyDefaults()
	if o.Broker != DefaultMQTTBroker || o.ClientID != DefaultMQTTClientID || o.ConnectTimeout != DefaultMQTTTimeout {
		t.Errorf("defaults = %+v", o)
	}
}
