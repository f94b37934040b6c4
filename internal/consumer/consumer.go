// Package consumer owns the service's single RabbitMQ connection. It turns
// delivered file paths into jobs and admits them to the task queue,
// acknowledging each delivery once it is safely enqueued. Connection-level
// failures terminate the consume loop so the process supervisor can restart
// the whole service; nothing here retries silently.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/luckystars0612/SecGram/internal/config"
	"github.com/luckystars0612/SecGram/internal/observability"
	"github.com/luckystars0612/SecGram/internal/taskqueue"
)

// Consumer reads file-path notifications from the well-known input queue
type Consumer struct {
	cfg     *config.RabbitMQConfig
	queue   *taskqueue.Queue
	logger  observability.Logger
	metrics observability.Metrics

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	stopped bool
}

// New creates a Consumer; the connection is established by Run
func New(cfg *config.RabbitMQConfig, queue *taskqueue.Queue,
	logger observability.Logger, metrics observability.Metrics) *Consumer {
	return &Consumer{
		cfg:     cfg,
		queue:   queue,
		logger:  logger.WithFields(map[string]interface{}{"component": "consumer"}),
		metrics: metrics,
	}
}

// Run connects to the broker, declares the input queue and consumes until
// the connection fails or Stop is called. It returns nil only on a
// deliberate Stop; any transport error is returned to the caller.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	if c.cfg.PrefetchCount > 0 {
		if err := ch.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
			c.Stop()
			return fmt.Errorf("set QoS: %w", err)
		}
	}

	// Declare queue (idempotent - creates if it doesn't exist)
	q, err := ch.QueueDeclare(
		c.cfg.Queue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		c.Stop()
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag (auto-generated)
		false,  // auto-ack (we ack manually after enqueue)
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		c.Stop()
		return fmt.Errorf("start consuming: %w", err)
	}

	closeErrs := conn.NotifyClose(make(chan *amqp.Error, 1))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-done:
		}
	}()

	c.logger.Info("consumer started",
		"queue", q.Name,
		"prefetch", c.cfg.PrefetchCount)

	for msg := range deliveries {
		c.handleDelivery(msg)
	}

	if c.isStopped() {
		c.logger.Info("consumer stopped")
		return nil
	}

	select {
	case amqpErr := <-closeErrs:
		if amqpErr != nil {
			return fmt.Errorf("broker connection lost: %w", amqpErr)
		}
	default:
	}
	return errors.New("delivery stream closed unexpectedly")
}

// handleDelivery admits one delivery to the task queue. The delivery is
// acked once the job is enqueued, not once it is processed; a full queue
// nacks with requeue so the broker redelivers under backpressure.
func (c *Consumer) handleDelivery(msg amqp.Delivery) {
	path := strings.TrimSpace(string(msg.Body))
	if path == "" {
		c.logger.Warn("discarding delivery with empty payload", "delivery_tag", msg.DeliveryTag)
		c.metrics.IncrementCounter("consumer.discarded", nil)
		if err := msg.Ack(false); err != nil {
			c.logger.Error("failed to ack delivery", "error", err, "delivery_tag", msg.DeliveryTag)
		}
		return
	}

	job := taskqueue.NewJob(path)

	switch err := c.queue.Enqueue(job); {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack delivery", "error", ackErr, "job_id", job.ID)
			return
		}
		c.logger.Info("job enqueued", "job_id", job.ID, "path", path)
		c.metrics.IncrementCounter("consumer.enqueued", nil)

	case errors.Is(err, taskqueue.ErrQueueFull):
		c.logger.Warn("task queue full, requeueing delivery", "path", path)
		c.metrics.IncrementCounter("consumer.queue_full", nil)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack delivery", "error", nackErr, "path", path)
		}

	default:
		// Queue closed: shutdown is in progress, hand the message back.
		c.logger.Warn("task queue closed, returning delivery to broker", "path", path)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack delivery", "error", nackErr, "path", path)
		}
	}
}

// Stop closes the channel and connection, ending the consume loop.
// Safe to call more than once and from any goroutine.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Consumer) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
