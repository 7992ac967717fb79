package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Mirror publishes every acknowledged frame to an MQTT topic so that other
// processes can follow an animation as it is drawn.
type Mirror struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *zap.Logger
}

// NewMirror creates an instance of a Mirror.
func NewMirror(client mqtt.Client, topic string, qos byte, log *zap.Logger) *Mirror {
	m := new(Mirror)
	m.client = client
	m.topic = topic
	m.qos = qos
	m.log = log
	return m
}

// ControlTopic is where the mirror listens for control messages.
func (m *Mirror) ControlTopic() string {
	return m.topic + "/control"
}

func (m *Mirror) publish(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, m.qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timed out")
	}
	return token.Error()
}

// FrameSent implements Observer.
func (m *Mirror) FrameSent(_ context.Context, presentationID string, f *Frame) error {
	return m.publish(f.Message(presentationID))
}

// SequenceDone implements Observer.
func (m *Mirror) SequenceDone(_ context.Context, presentationID, elementID string, frames int, err error) {
	msg := SequenceMessage{
		MirrorMessage:  MirrorMessage{Type: "done"},
		PresentationID: presentationID,
		ElementID:      elementID,
		Frames:         frames,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	if perr := m.publish(msg); perr != nil {
		m.log.Warn("Unable to publish sequence end", zap.String("element", elementID), zap.Error(perr))
	}
}

// Subscribe listens on the control topic and calls abort when an "abort"
// message arrives. Frames already acknowledged stay applied.
func (m *Mirror) Subscribe(abort context.CancelFunc) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var message MirrorMessage
		if err := json.Unmarshal(msg.Payload(), &message); err != nil {
			m.log.Warn("Malformed control message", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		m.log.Debug("Control message", zap.String("type", message.Type))
		if message.Type == "abort" {
			m.log.Warn("Abort requested over MQTT")
			abort()
		}
	}
	token := m.client.Subscribe(m.ControlTopic(), m.qos, handler)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe to %s timed out", m.ControlTopic())
	}
	return token.Error()
}
