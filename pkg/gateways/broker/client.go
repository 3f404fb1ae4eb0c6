package broker

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	qosAtLeastOnce    byte = 1
	notRetained            = false
	publishTimeout         = 2 * time.Second
	disconnectQuiesce      = 250 // milliseconds paho waits for in-flight work
)

// MessageHandler receives one inbound broker message.
type MessageHandler func(topic string, payload []byte)

// Client abstracts the MQTT connection used by the bridge.
type Client interface {
	Connect() error
	Subscribe(topics []string, handler MessageHandler) error
	Publish(topic, payload string) error
	Unsubscribe(topics []string) error
	Disconnect()
}

type mqttClient struct {
	log *logrus.Entry
	cli mqtt.Client

	mu            sync.Mutex
	subscriptions map[string]byte
	handler       MessageHandler
}

// NewMQTTClient builds a persistent-session QoS-1 client: clean session
// false, automatic reconnect, subscriptions re-issued on every connect.
func NewMQTTClient(brokerURI, clientID string, log *logrus.Entry) Client {
	c := &mqttClient{
		log:           log,
		subscriptions: make(map[string]byte),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURI).
		SetClientID(clientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetKeepAlive(30 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.Info("connected")
			c.resubscribe()
		})

	c.cli = mqtt.NewClient(opts)
	return c
}

func (c *mqttClient) Connect() error {
	connect := func() error {
		token := c.cli.Connect()
		token.Wait()
		return token.Error()
	}

	connectBackOff := backoff.NewExponentialBackOff()
	connectBackOff.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(connect, connectBackOff); err != nil {
		return errors.Wrap(err, "broker connect")
	}
	return nil
}

func (c *mqttClient) Subscribe(topics []string, handler MessageHandler) error {
	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = qosAtLeastOnce
	}

	c.mu.Lock()
	c.handler = handler
	for topic, qos := range filters {
		c.subscriptions[topic] = qos
	}
	c.mu.Unlock()

	token := c.cli.SubscribeMultiple(filters, c.onMessage)
	token.Wait()
	if token.Error() != nil {
		return errors.Wrap(token.Error(), "broker subscribe")
	}
	c.log.WithField("topics", topics).Info("subscribed (QoS 1)")
	return nil
}

// resubscribe re-issues the stored filters after a reconnect. The broker
// keeps the session (clean session false), but re-subscribing is harmless
// and covers brokers that expire sessions.
func (c *mqttClient) resubscribe() {
	c.mu.Lock()
	handler := c.handler
	filters := make(map[string]byte, len(c.subscriptions))
	for topic, qos := range c.subscriptions {
		filters[topic] = qos
	}
	c.mu.Unlock()

	if handler == nil || len(filters) == 0 {
		return
	}
	token := c.cli.SubscribeMultiple(filters, c.onMessage)
	token.Wait()
	if token.Error() != nil {
		c.log.WithError(token.Error()).Error("resubscribe failed")
	}
}

func (c *mqttClient) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(msg.Topic(), msg.Payload())
	}
}

func (c *mqttClient) Publish(topic, payload string) error {
	token := c.cli.Publish(topic, qosAtLeastOnce, notRetained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func (c *mqttClient) Unsubscribe(topics []string) error {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	c.mu.Unlock()

	token := c.cli.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

func (c *mqttClient) Disconnect() {
	c.cli.Disconnect(disconnectQuiesce)
}
