// Package delay schedules the deferred "check this order" signal through a
// RabbitMQ dead-letter topology: messages published to the delay queue
// carry a per-message TTL and are dead-lettered into the check queue once
// it elapses. A scheduled check always fires; the coordinator's status
// guards make late or duplicate firings harmless.
package delay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DelayExchange = "trade.delay.direct"
	DelayQueue    = "trade.delay.order.queue"
	DelayKey      = "order.delay.check"

	CheckExchange = "trade.check.direct"
	CheckQueue    = "trade.order.check.queue"
	CheckKey      = "order.check"
)

type checkMessage struct {
	OrderID string `json:"order_id"`
}

type Scheduler struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	delay   time.Duration
	logger  *slog.Logger
}

func NewScheduler(url string, delay time.Duration, logger *slog.Logger) (*Scheduler, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	s := &Scheduler{
		conn:    conn,
		channel: ch,
		delay:   delay,
		logger:  logger,
	}

	if err := s.declareTopology(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) declareTopology() error {
	if err := s.channel.ExchangeDeclare(DelayExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare delay exchange: %w", err)
	}
	if err := s.channel.ExchangeDeclare(CheckExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare check exchange: %w", err)
	}

	// No queue-level TTL: each message carries its own expiration, so the
	// timeout stays configurable without redeclaring the queue.
	_, err := s.channel.QueueDeclare(DelayQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    CheckExchange,
		"x-dead-letter-routing-key": CheckKey,
	})
	if err != nil {
		return fmt.Errorf("declare delay queue: %w", err)
	}
	if err := s.channel.QueueBind(DelayQueue, DelayKey, DelayExchange, false, nil); err != nil {
		return fmt.Errorf("bind delay queue: %w", err)
	}

	if _, err := s.channel.QueueDeclare(CheckQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare check queue: %w", err)
	}
	if err := s.channel.QueueBind(CheckQueue, CheckKey, CheckExchange, false, nil); err != nil {
		return fmt.Errorf("bind check queue: %w", err)
	}

	return nil
}

// Schedule enqueues a delayed check for the order. Once accepted by the
// broker the check cannot be cancelled.
func (s *Scheduler) Schedule(ctx context.Context, orderID string) error {
	body, err := json.Marshal(checkMessage{OrderID: orderID})
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(ctx, DelayExchange, DelayKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Expiration:   strconv.FormatInt(s.delay.Milliseconds(), 10),
	})
}

// Consume feeds due checks to handler. Failed handlers are nacked with
// requeue, so handlers must be idempotent under redelivery.
func (s *Scheduler) Consume(ctx context.Context, handler func(ctx context.Context, orderID string) error) error {
	consumerTag := fmt.Sprintf("order-check-%d", time.Now().UnixNano())
	deliveries, err := s.channel.Consume(CheckQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume check queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("check queue channel closed")
			}

			var msg checkMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				s.logger.Error("malformed check message dropped", "error", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg.OrderID); err != nil {
				s.logger.Error("delayed check failed, requeueing", "error", err, "order_id", msg.OrderID)
				_ = d.Nack(false, true)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

func (s *Scheduler) Close() {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Error("failed to close rabbitmq channel", "error", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Error("failed to close rabbitmq connection", "error", err)
		}
	}
}
