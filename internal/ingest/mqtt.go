// Package ingest feeds occupancy snapshots published by the lot sensors
// into the realtime hub.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/config"
	"github.com/iliyamo/smartpark/internal/realtime"
)

// Updater receives every accepted snapshot. *realtime.Hub satisfies it.
type Updater interface {
	UpdateSnapshot(next realtime.Snapshot)
}

// Subscriber listens on the occupancy topic.  Each message must hold a
// complete snapshot, a JSON array of spot statuses, which replaces the
// previous one.
type Subscriber struct {
	cfg    config.MQTTConfig
	sink   Updater
	logger *zap.Logger
	client mqtt.Client
}

func NewSubscriber(cfg config.MQTTConfig, sink Updater, logger *zap.Logger) *Subscriber {
	return &Subscriber{cfg: cfg, sink: sink, logger: logger.Named("ingest")}
}

// Start connects to the broker.  The subscription is (re)established from
// the OnConnect hook so it survives automatic reconnects.
func (s *Subscriber) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn("mqtt connection lost", zap.Error(err))
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}
	s.client = mqtt.NewClient(opts)

	tok := s.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", s.cfg.Broker, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Subscriber) onConnect(c mqtt.Client) {
	tok := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handle)
	if !tok.WaitTimeout(s.cfg.ConnectTimeout) {
		s.logger.Error("mqtt subscribe timed out", zap.String("topic", s.cfg.Topic))
		return
	}
	if err := tok.Error(); err != nil {
		s.logger.Error("mqtt subscribe", zap.String("topic", s.cfg.Topic), zap.Error(err))
		return
	}
	s.logger.Info("subscribed", zap.String("broker", s.cfg.Broker), zap.String("topic", s.cfg.Topic))
}

// Stop disconnects, waiting up to 250ms for in-flight work.  It also ends
// a connect retry loop that never reached the broker.
func (s *Subscriber) Stop() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
}

func (s *Subscriber) handle(_ mqtt.Client, m mqtt.Message) {
	if err := s.apply(m.Payload()); err != nil {
		s.logger.Warn("occupancy message rejected",
			zap.String("topic", m.Topic()), zap.Int("bytes", len(m.Payload())), zap.Error(err))
	}
}

var errNotSnapshot = errors.New("payload is not an occupancy snapshot")

func (s *Subscriber) apply(payload []byte) error {
	var snap realtime.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("%w: %w", errNotSnapshot, err)
	}
	if snap == nil {
		return errNotSnapshot
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	s.sink.UpdateSnapshot(snap)
	return nil
}
