package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

const publishTimeout = 5 * time.Second

// SignalMessage is what field controllers receive after an optimization.
type SignalMessage struct {
	TS                 time.Time       `json:"ts"`
	SessionID          string          `json:"session_id"`
	IntersectionType   models.Topology `json:"intersection_type"`
	GreenTimes         []int           `json:"green_times"`
	RedTimes           []int           `json:"red_times,omitempty"`
	EstimatedDelayTime float64         `json:"estimated_delay_time"`
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// SignalPublisher pushes optimized timings to MQTT under
// <prefix>/<intersection type>. A nil publisher is a no-op.
type SignalPublisher struct {
	client mqttPublisher
	prefix string
}

// NewSignalPublisher connects to the broker. It returns nil when no broker
// URL is configured.
func NewSignalPublisher(cfg config.MQTTConfig) (*SignalPublisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID("optiflow-api-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		log.Printf("signal publisher connected broker=%s", cfg.URL)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) && token.Error() == nil {
		log.Printf("mqtt broker not reachable yet, retrying in background broker=%s", cfg.URL)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &SignalPublisher{client: client, prefix: cfg.TopicPrefix}, nil
}

func (p *SignalPublisher) Topic(topology models.Topology) string {
	return p.prefix + "/" + strings.ToLower(topology.String())
}

// Publish sends result's timings. Mock results are never sent to the field.
func (p *SignalPublisher) Publish(sessionID string, topology models.Topology, result *models.OptimizationResult) error {
	if p == nil || result == nil {
		return nil
	}
	if result.Source == models.SourceMock {
		log.Printf("signal publish skipped for mock result session=%s", sessionID)
		return nil
	}

	data, err := json.Marshal(SignalMessage{
		TS:                 time.Now().UTC(),
		SessionID:          sessionID,
		IntersectionType:   topology,
		GreenTimes:         result.OptimizedGreenTimes,
		RedTimes:           result.OptimizedRedTimes,
		EstimatedDelayTime: result.EstimatedDelayTime,
	})
	if err != nil {
		return err
	}

	topic := p.Topic(topology)
	token := p.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("mqtt publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (p *SignalPublisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
