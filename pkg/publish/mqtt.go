package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/climate"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultMQTTTopicPrefix is used when no prefix is configured
	DefaultMQTTTopicPrefix = "nuheat"

	// DefaultMQTTPublishTimeout bounds the wait for a broker acknowledgement.
	// Publishes queued during a reconnect give up after this long.
	DefaultMQTTPublishTimeout = 5 * time.Second
)

// mqttClient is the part of mqtt.Client the publisher uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes retained state to <prefix>/<kind>/<id>
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	timeout time.Duration
}

// DialMQTT connects to broker (for example tcp://localhost:1883)
func DialMQTT(broker, prefix, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultMQTTTopicPrefix
	}
	return &MQTTPublisher{client: client, prefix: prefix, timeout: DefaultMQTTPublishTimeout}
}

// Topic returns the topic used for an entity
func (p *MQTTPublisher) Topic(kind, id string) string {
	return p.prefix + "/" + kind + "/" + subjectToken(id, "/+#")
}

// WriteState implements climate.StateWriter
func (p *MQTTPublisher) WriteState(ctx context.Context, state climate.EntityState) error {
	data, err := encode(state)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", state.Kind, state.ID, err)
	}
	topic := p.Topic(state.Kind, state.ID)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token := p.client.Publish(topic, 1, true, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects after in-flight messages are sent
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
