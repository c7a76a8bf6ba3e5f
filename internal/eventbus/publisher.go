// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/elevow/table-sub009/internal/alerts"
	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/models"
)

// Event types.
const (
	EventAlertCreated       = "alert.created"
	EventAlertStatusChanged = "alert.status_changed"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// AlertEvent is the message payload.
type AlertEvent struct {
	EventID     string            `json:"event_id"`
	Type        string            `json:"type"`
	PublishedAt int64             `json:"published_at"`
	Alert       models.AdminAlert `json:"alert"`
}

// Publisher sends alert events to a single topic. It implements
// alerts.Notifier.
type Publisher struct {
	publisher message.Publisher
	topic     string

	mu     sync.RWMutex
	closed bool
}

var _ alerts.Notifier = (*Publisher)(nil)

// NewPublisher wraps an existing Watermill publisher.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{publisher: pub, topic: topic}
}

// NewNATSPublisher connects to NATS and publishes through JetStream. The
// stream for cfg.Topic is provisioned on first publish.
func NewNATSPublisher(cfg config.NATSConfig) (*Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return NewPublisher(pub, cfg.Topic), nil
}

// AlertCreated implements alerts.Notifier.
func (p *Publisher) AlertCreated(ctx context.Context, a models.AdminAlert) error {
	return p.publish(ctx, EventAlertCreated, a)
}

// AlertStatusChanged implements alerts.Notifier.
func (p *Publisher) AlertStatusChanged(ctx context.Context, a models.AdminAlert) error {
	return p.publish(ctx, EventAlertStatusChanged, a)
}

func (p *Publisher) publish(ctx context.Context, eventType string, a models.AdminAlert) (err error) {
	defer func() { metrics.RecordEventPublished(eventType, err) }()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	event := AlertEvent{
		EventID:     eventID(eventType, a),
		Type:        eventType,
		PublishedAt: time.Now().UnixMilli(),
		Alert:       a,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", eventType)
	msg.Metadata.Set("alert_id", a.ID)
	msg.Metadata.Set("severity", string(a.Severity))
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish %s for alert %s: %w", eventType, a.ID, err)
	}
	return nil
}

// eventID is stable for a given alert state.
func eventID(eventType string, a models.AdminAlert) string {
	key := eventType + "|" + a.ID + "|" + strconv.FormatInt(a.UpdatedAt, 10)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// DecodeAlertEvent parses a message produced by Publisher.
func DecodeAlertEvent(msg *message.Message) (AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return AlertEvent{}, fmt.Errorf("decode alert event %s: %w", msg.UUID, err)
	}
	return event, nil
}

// Close closes the underlying publisher. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
