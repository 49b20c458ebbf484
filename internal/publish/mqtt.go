package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/motion.report/internal/segment"
)

const (
	DefaultTopicPrefix = "motion"
	DefaultClientID    = "motion-report"
	DefaultTimeout     = 5 * time.Second
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// MQTTConfig selects the broker and topics. Changes go to <prefix>/state and
// summaries to <prefix>/summary, both retained so late subscribers see the
// current value.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
}

func (c MQTTConfig) withDefaults() MQTTConfig {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// StateTopic is where confirmed changes are published.
func (c MQTTConfig) StateTopic() string { return c.withDefaults().TopicPrefix + "/state" }

// SummaryTopic is where analysis summaries are published.
func (c MQTTConfig) SummaryTopic() string { return c.withDefaults().TopicPrefix + "/summary" }

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes JSON payloads to an MQTT broker.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqttClient
}

// NewMQTTPublisher connects to cfg.Broker and returns a publisher.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	cfg = cfg.withDefaults()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if err := wait(token, cfg.Timeout); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqttClient, cfg MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{cfg: cfg.withDefaults(), client: client}
}

func (p *MQTTPublisher) PublishChange(c Change) error {
	return p.publish(p.cfg.StateTopic(), c)
}

func (p *MQTTPublisher) PublishSummary(s segment.Summary) error {
	return p.publish(p.cfg.SummaryTopic(), s)
}

func (p *MQTTPublisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal for %s: %w", topic, err)
	}
	if err := wait(p.client.Publish(topic, p.cfg.QoS, true, payload), p.cfg.Timeout); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, giving in-flight messages 250ms to drain.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

func wait(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}
