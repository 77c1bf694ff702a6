package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/metrics"
	"github.com/Checker-Finance/trade-recon/internal/recon"
)

// Evaluator is the engine surface the consumer drives.
type Evaluator interface {
	Evaluate(ctx context.Context, tradeID string) error
}

// Consumer pulls reconciliation tasks off the queue and runs the engine with
// a pool of concurrent workers. The queue is at-least-once: redelivered tasks
// are harmless because evaluation is idempotent.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	workers   int
	evaluator Evaluator
	logger    *zap.Logger
	done      chan struct{}
}

// NewConsumer creates a new task queue consumer.
func NewConsumer(url, queue string, workers int, evaluator Evaluator, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if workers <= 0 {
		workers = 1
	}

	return &Consumer{
		conn:      conn,
		channel:   channel,
		queue:     queue,
		workers:   workers,
		evaluator: evaluator,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start declares the queue and launches the worker pool.
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	if err := c.channel.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	c.logger.Info("rabbitmq.consumer.started",
		zap.String("queue", c.queue),
		zap.Int("workers", c.workers),
	)

	for i := 0; i < c.workers; i++ {
		go c.consumeTasks(ctx, msgs)
	}

	return nil
}

func (c *Consumer) consumeTasks(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("rabbitmq.consumer.channel_closed")
				return
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	task, err := parseTask(msg.Body)
	if err != nil {
		c.logger.Error("rabbitmq.consumer.malformed_task",
			zap.ByteString("body", msg.Body),
			zap.Error(err))
		metrics.IncTaskConsumed("malformed")
		// Unparseable payloads can never succeed; drop them to the DLQ if
		// the queue has one, not back onto the queue.
		_ = msg.Nack(false, false)
		return
	}

	c.logger.Debug("rabbitmq.consumer.task_received",
		zap.String("trade_id", task.TradeID),
		zap.String("task_id", task.TaskID.String()))

	if err := c.evaluator.Evaluate(ctx, task.TradeID); err != nil {
		// The engine has already persisted the outcome (ERROR) or judged
		// the task unserviceable (no data on either side). Either way the
		// task is consumed; re-triggering is the submitter's job.
		if recon.IsInvariantViolation(err) {
			c.logger.Warn("rabbitmq.consumer.task_skipped",
				zap.String("trade_id", task.TradeID),
				zap.Error(err))
		} else {
			c.logger.Error("rabbitmq.consumer.task_failed",
				zap.String("trade_id", task.TradeID),
				zap.Error(err))
		}
		metrics.IncTaskConsumed("error")
		_ = msg.Ack(false)
		return
	}

	metrics.IncTaskConsumed("ok")
	_ = msg.Ack(false)
}

// Close stops the workers and closes the connection.
func (c *Consumer) Close() error {
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
