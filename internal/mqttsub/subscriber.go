// Package mqttsub feeds snapshots published on an MQTT topic into the same
// ingest path as HTTP pushes.
package mqttsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/DoyleJ11/seatbus-monitor/internal/config"
	"github.com/DoyleJ11/seatbus-monitor/internal/ingest"
	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
)

const (
	connectTimeout = 10 * time.Second
	ingestTimeout  = 5 * time.Second
	quiesceMillis  = 250
)

// Ingester is the ingest entry point the subscriber hands payloads to.
type Ingester interface {
	Ingest(ctx context.Context, transport string, body []byte) (occupancy.Snapshot, error)
}

type Subscriber struct {
	client mqtt.Client
	topic  string
	qos    byte
	in     Ingester
	log    *zap.Logger
	ctx    context.Context
}

func New(cfg config.MQTTConfig, in Ingester, log *zap.Logger) *Subscriber {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	s := &Subscriber{
		topic: cfg.Topic,
		qos:   cfg.QoS,
		in:    in,
		log:   log,
		ctx:   context.Background(),
	}
	// resubscribe after every (re)connect
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(s.topic, s.qos, s.handle); token.Wait() && token.Error() != nil {
			s.log.Error("mqtt subscribe failed", zap.String("topic", s.topic), zap.Error(token.Error()))
			return
		}
		s.log.Info("mqtt subscribed", zap.String("topic", s.topic))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn("mqtt connection lost", zap.Error(err))
	})
	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. Messages are ingested until ctx is done or
// Stop is called.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) Stop() {
	s.client.Disconnect(quiesceMillis)
}

func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(s.ctx, ingestTimeout)
	defer cancel()

	if _, err := s.in.Ingest(ctx, ingest.TransportMQTT, msg.Payload()); err != nil {
		if errors.Is(err, occupancy.ErrInvalidPayload) {
			// already logged by ingest
			return
		}
		s.log.Error("mqtt ingest failed", zap.String("topic", msg.Topic()), zap.Error(err))
	}
}
