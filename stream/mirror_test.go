package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zaptest"
)

type fakeToken struct {
	mqtt.Token
	err error
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

type fakeClient struct {
	mqtt.Client
	published [][]byte
	topics    []string
	handlers  map[string]mqtt.MessageHandler
	err       error
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.published = append(c.published, payload.([]byte))
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	if c.handlers == nil {
		c.handlers = make(map[string]mqtt.MessageHandler)
	}
	c.handlers[topic] = h
	return &fakeToken{}
}

func (c *fakeClient) deliver(topic, payload string) {
	c.handlers[topic](c, &fakeMessage{topic: topic, payload: []byte(payload)})
}

func TestMirror_PublishesFrames(t *testing.T) {
	client := &fakeClient{}
	m := NewMirror(client, "slidetx/frames", 1, zaptest.NewLogger(t))

	f := NewFrame("p", "e", 0, 8)
	f.Add(DeleteAllText("e"), InsertText("e", " "))
	if err := m.FrameSent(context.Background(), "deck", f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	m.SequenceDone(context.Background(), "deck", "e", 8, errors.New("boom"))

	if len(client.published) != 2 || client.topics[0] != "slidetx/frames" {
		t.Fatalf("published %d messages to %v", len(client.published), client.topics)
	}
	var frame FrameMessage
	if err := json.Unmarshal(client.published[0], &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != "frame" || frame.PresentationID != "deck" || frame.Total != 8 || frame.Requests != 2 {
		t.Errorf("frame message = %+v", frame)
	}
	var done SequenceMessage
	if err := json.Unmarshal(client.published[1], &done); err != nil {
		t.Fatal(err)
	}
	if done.Type != "done" || done.Frames != 8 || done.Error != "boom" {
		t.Errorf("done message = %+v", done)
	}
}

func TestMirror_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("offline")}
	m := NewMirror(client, "t", 0, zaptest.NewLogger(t))
	if err := m.FrameSent(context.Background(), "deck", NewFrame("p", "e", 0, 1)); err == nil {
		t.Error("expected the publish error")
	}
}

func TestMirror_AbortControl(t *testing.T) {
	client := &fakeClient{}
	m := NewMirror(client, "t", 0, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Subscribe(cancel); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	client.deliver("t/control", "not json")
	client.deliver("t/control", `{"type":"status"}`)
	if ctx.Err() != nil {
		t.Fatal("cancelled by a non-abort message")
	}
	client.deliver("t/control", `{"type":"abort"}`)
	if ctx.Err() == nil {
		t.Error("abort did not cancel")
	}
}
