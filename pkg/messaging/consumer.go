package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medflow/medflow-timesheet/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MaxDeliveryAttempts is how many times a failing message is requeued before it is
// rejected into the dead letter queue.
const MaxDeliveryAttempts = 3

// HeaderRetryCount carries the number of failed deliveries on a requeued message.
// A plain nack does not count anything, so failed messages are published again with
// this header raised by one.
const HeaderRetryCount = "x-retry-count"

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Outcome is what the consumer does with a delivery after dispatch
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeRequeue
	OutcomeReject
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as a failure that redelivery cannot fix, such as a payload that
// does not decode. Dispatch rejects it into the dead letter queue right away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type binding struct {
	exchange   string
	routingKey string
}

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	instance  bool
	bindings  []binding
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer creates a new consumer for the given durable, shared queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	return newConsumer(rmq, queueName, false, log)
}

// NewInstanceConsumer creates a consumer on a queue that belongs to this process only.
// The broker deletes the queue with the connection, so replicas that go away do not
// leave queues behind that keep collecting events.
func NewInstanceConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	return newConsumer(rmq, queueName, true, log)
}

func newConsumer(rmq *RabbitMQ, queueName string, instance bool, log *logger.Logger) (*Consumer, error) {
	c := NewDispatcher(queueName, log)
	c.rmq = rmq
	c.instance = instance

	if err := c.declare(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare() error {
	var err error
	if c.instance {
		_, err = c.rmq.DeclareInstanceQueue(c.queueName)
	} else {
		_, err = c.rmq.DeclareQueue(c.queueName)
	}
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queueName, err)
	}
	return nil
}

// NewDispatcher creates a consumer that is not attached to a broker. Handlers can be
// registered and exercised through Dispatch.
func NewDispatcher(queueName string, log *logger.Logger) *Consumer {
	return &Consumer{
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	c.bindings = append(c.bindings, binding{exchange: exchange, routingKey: routingKeyPattern})

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue. An instance queue is gone after a
// reconnect, so it is declared and bound again first.
func (c *Consumer) Start(ctx context.Context) error {
	if c.instance {
		if err := c.declare(); err != nil {
			return err
		}
		for _, b := range c.bindings {
			if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
				return fmt.Errorf("failed to bind queue: %w", err)
			}
		}
	}

	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed")
					return
				}
				attempts := getRetryCount(msg)
				c.settle(ctx, msg, c.Dispatch(ctx, msg.Body, attempts), attempts)
			}
		}
	}()

	return nil
}

// Dispatch decodes a message body and runs the registered handler.
// attempts is the number of earlier failed deliveries of the same message.
func (c *Consumer) Dispatch(ctx context.Context, body []byte, attempts int) Outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("failed to unmarshal event")
		return OutcomeReject
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		return OutcomeAck
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		if IsPermanent(err) {
			c.logger.Warn().
				Str("event_id", event.ID).
				Msg("event cannot be processed, sending to DLQ")
			return OutcomeReject
		}
		if attempts >= MaxDeliveryAttempts {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retry_count", attempts).
				Msg("max retries exceeded, sending to DLQ")
			return OutcomeReject
		}
		return OutcomeRequeue
	}

	return OutcomeAck
}

func (c *Consumer) settle(ctx context.Context, msg amqp.Delivery, outcome Outcome, attempts int) {
	var err error
	switch outcome {
	case OutcomeAck:
		err = msg.Ack(false)
	case OutcomeRequeue:
		if err = c.retry(ctx, msg, attempts+1); err != nil {
			c.logger.Warn().Err(err).Str("queue", c.queueName).Msg("failed to republish delivery, requeueing")
			err = msg.Nack(false, true)
		} else {
			err = msg.Ack(false)
		}
	case OutcomeReject:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("queue", c.queueName).Msg("failed to settle delivery")
	}
}

// retry publishes msg to the back of the queue with the retry count set to attempts
func (c *Consumer) retry(ctx context.Context, msg amqp.Delivery, attempts int) error {
	return c.rmq.Channel().PublishWithContext(ctx,
		"",          // default exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			Headers:       retryHeaders(msg.Headers, attempts),
			ContentType:   msg.ContentType,
			DeliveryMode:  msg.DeliveryMode,
			CorrelationId: msg.CorrelationId,
			MessageId:     msg.MessageId,
			Timestamp:     msg.Timestamp,
			Type:          msg.Type,
			Body:          msg.Body,
		},
	)
}

func retryHeaders(headers amqp.Table, attempts int) amqp.Table {
	out := make(amqp.Table, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[HeaderRetryCount] = int32(attempts)
	return out
}

// getRetryCount returns how often msg failed before. A delivery that was requeued by
// the broker without a count is redelivered and counts as one failure.
func getRetryCount(msg amqp.Delivery) int {
	count, _ := headerInt(msg.Headers[HeaderRetryCount])

	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if n, ok := headerInt(d["count"]); ok && n > count {
					count = n
				}
			}
		}
	}

	if count == 0 && msg.Redelivered {
		count = 1
	}
	return count
}

func headerInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}
