package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskPublisher enqueues reconciliation tasks onto a durable RabbitMQ queue.
type TaskPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewTaskPublisher connects to RabbitMQ and declares the task queue.
func NewTaskPublisher(url, queue string, logger *zap.Logger) (*TaskPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &TaskPublisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
		logger:  logger,
	}, nil
}

// EnqueueReconciliation publishes a "reconcile this trade identifier" task.
// Delivery is at-least-once; duplicates are handled by the engine's
// idempotence.
func (p *TaskPublisher) EnqueueReconciliation(ctx context.Context, tradeID string) error {
	task := Task{
		TaskID:     uuid.New(),
		TradeID:    tradeID,
		EnqueuedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task for trade [%s]: %w", tradeID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.TaskID.String(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("rabbitmq.enqueue_failed",
			zap.String("trade_id", tradeID),
			zap.Error(err))
		return fmt.Errorf("enqueue reconciliation for trade [%s]: %w", tradeID, err)
	}

	p.logger.Debug("rabbitmq.task_enqueued",
		zap.String("trade_id", tradeID),
		zap.String("task_id", task.TaskID.String()))
	return nil
}

// Close closes the publisher.
func (p *TaskPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
