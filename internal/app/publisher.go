package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/config"
)

const publishTimeout = 2 * time.Second

// Publisher is the message bus the tools share. The MQTT implementation is
// used when a broker is configured; otherwise publishing is a no-op.
type Publisher interface {
	Publish(topic string, retained bool, v any) error
	Subscribe(topic string, handle func(payload []byte)) error
	Close()
}

type mqttPublisher struct {
	client mqtt.Client
}

// ConnectMQTT connects to broker and returns a Publisher backed by it.
func ConnectMQTT(broker, clientID string) (Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	log.Infof("connected to MQTT broker at %s as %s", broker, clientID)
	return &mqttPublisher{client: client}, nil
}

// NewPublisher connects to cfg's broker, or returns a no-op publisher
// when none is configured.
func NewPublisher(cfg *config.Config, clientID string) (Publisher, error) {
	if cfg.MQTTBroker == "" {
		log.Info("MQTT_BROKER not set, publishing disabled")
		return nopPublisher{}, nil
	}
	return ConnectMQTT(cfg.MQTTBroker, clientID)
}

func (p *mqttPublisher) Publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("MQTT publish (%s): timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, err)
	}
	return nil
}

func (p *mqttPublisher) Subscribe(topic string, handle func(payload []byte)) error {
	token := p.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handle(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT subscribe (%s): %w", topic, err)
	}
	log.Infof("subscribed to MQTT topic %s", topic)
	return nil
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(250)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, bool, any) error              { return nil }
func (nopPublisher) Subscribe(string, func(payload []byte)) error { return nil }
func (nopPublisher) Close()                                       {}
