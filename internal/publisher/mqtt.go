// Package publisher mirrors engine status onto an MQTT broker.
package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_pump/internal/config"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 5 * time.Second
	quiesceMillis  = 250

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends every status as retained JSON to Topic. Availability is
// reported on Topic + "/availability", with a last will of "offline".
type Publisher struct {
	c     client
	topic string
	qos   byte
	log   *logger.Logger

	mu      sync.Mutex
	closed  bool
	lastSeq uint64
}

// Connect dials the broker. Callers only use it when cfg.Broker is set.
func Connect(cfg config.MQTTConfig, log *logger.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	if log == nil {
		log = logger.Nop()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(availabilityTopic(cfg.Topic), payloadOffline, cfg.QoS, true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnw("mqtt connection lost", "broker", cfg.Broker, "error", err)
		})

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", cfg.Broker, connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	p := newPublisher(c, cfg.Topic, cfg.QoS, log)
	p.c.Publish(availabilityTopic(p.topic), p.qos, true, payloadOnline)
	log.Infow("mqtt connected", "broker", cfg.Broker, "topic", cfg.Topic)
	return p, nil
}

func newPublisher(c client, topic string, qos byte, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{c: c, topic: topic, qos: qos, log: log}
}

// Payload is the JSON document published for st.
func Payload(st models.Status) ([]byte, error) {
	return json.Marshal(st)
}

// Publish is an engine listener. It never waits for the broker. A status
// older than the last one sent is dropped so the retained message never
// goes backwards; Seq 0 is always sent.
func (p *Publisher) Publish(st models.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if st.Seq != 0 {
		if st.Seq <= p.lastSeq {
			p.log.Debugw("dropping stale status", "seq", st.Seq, "last_seq", p.lastSeq)
			return
		}
		p.lastSeq = st.Seq
	}
	b, err := Payload(st)
	if err != nil {
		p.log.Errorw("encode status for mqtt", "error", err)
		return
	}
	tok := p.c.Publish(p.topic, p.qos, true, b)
	go func() {
		if tok.WaitTimeout(connectTimeout) && tok.Error() != nil {
			p.log.Debugw("mqtt publish failed", "topic", p.topic, "error", tok.Error())
		}
	}()
}

// Close marks the pump offline and disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.c.Publish(availabilityTopic(p.topic), p.qos, true, payloadOffline).WaitTimeout(time.Second)
	p.c.Disconnect(quiesceMillis)
}

func availabilityTopic(topic string) string {
	return topic + "/availability"
}
