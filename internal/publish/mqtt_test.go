package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	sent         []message
	token        *fakeToken
	disconnected uint
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, message{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = quiesce }

var _ Publisher = (*MQTTPublisher)(nil)
var _ Publisher = Nop{}

func TestMQTTConfig_Topics(t *testing.T) {
	assert.Equal(t, "motion/state", MQTTConfig{}.StateTopic())
	assert.Equal(t, "motion/summary", MQTTConfig{}.SummaryTopic())
	assert.Equal(t, "lab/imu1/state", MQTTConfig{TopicPrefix: "lab/imu1/"}.StateTopic())
}

func TestMQTTPublisher_PublishChange(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, MQTTConfig{QoS: 1})

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.PublishChange(Change{
		SessionID: "s1",
		Previous:  motion.LabelIdle,
		Label:     motion.LabelWalking,
		Raw:       motion.LabelWalking,
		Time:      at,
	}))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "motion/state", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "idle", got["previous"])
	assert.Equal(t, "walking", got["label"])
	assert.Equal(t, "2025-03-01T12:00:00Z", got["time"])
}

func TestMQTTPublisher_PublishSummary(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, MQTTConfig{TopicPrefix: "lab"})

	summary := segment.Summary{Total: 2, Patterns: []segment.PatternCount{{Pattern: "active", Count: 2, Share: 100}}}
	require.NoError(t, p.PublishSummary(summary))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "lab/summary", client.sent[0].topic)

	var got segment.Summary
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, summary, got)
}

func TestMQTTPublisher_Errors(t *testing.T) {
	boom := errors.New("not connected")
	client := &fakeClient{token: &fakeToken{err: boom}}
	p := newMQTTPublisher(client, MQTTConfig{})
	err := p.PublishChange(Change{Label: motion.LabelRunning})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "motion/state")

	client.token = &fakeToken{pending: true}
	assert.ErrorIs(t, p.PublishChange(Change{}), ErrTimeout)

	require.NoError(t, p.Close())
	assert.Equal(t, uint(250), client.disconnected)
}

func TestNewMQTTPublisher_NoBroker(t *testing.T) {
	_, err := NewMQTTPublisher(MQTTConfig{})
	assert.Error(t, err)
}

func TestNewMQTTPublisher_Unreachable(t *testing.T) {
	// nothing listens on port 1
	_, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishChange(Change{}))
	assert.NoError(t, p.PublishSummary(segment.Summary{}))
	assert.NoError(t, p.Close())
}
