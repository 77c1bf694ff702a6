package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/metrics"
	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// Publisher emits reconciliation outcome events to NATS JetStream. It
// satisfies the engine's OutcomeNotifier interface; publish failures are
// logged and absorbed so event delivery can never fail an evaluation.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
	logger  *zap.Logger
}

// New creates a new Publisher with JetStream enabled.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
		logger:  logger,
	}, nil
}

// ReconciliationUpdated publishes one outcome event wrapped in the canonical
// envelope.
func (p *Publisher) ReconciliationUpdated(ctx context.Context, rec model.ReconciliationRecord) {
	payload, err := json.Marshal(model.ReconciliationUpdatedEvent{
		TradeID:   rec.TradeID,
		Status:    rec.Status,
		Details:   rec.Details,
		Timestamp: rec.UpdatedAt,
	})
	if err != nil {
		p.logger.Error("events.marshal_failed",
			zap.String("trade_id", rec.TradeID),
			zap.Error(err))
		metrics.IncError("events", "marshal_failed")
		return
	}

	env := model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         p.subject,
		EventType:     "reconciliation.updated",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncError("events", "marshal_failed")
		return
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"trade_id":       []string{rec.TradeID},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Error("events.publish_failed",
			zap.String("trade_id", rec.TradeID),
			zap.String("subject", p.subject),
			zap.Error(err))
		metrics.IncEventPublished("error")
		return
	}

	p.logger.Debug("events.publish_success",
		zap.String("trade_id", rec.TradeID),
		zap.String("status", string(rec.Status)))
	metrics.IncEventPublished("ok")
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
