package amqp

import (
	"context"
	"fmt"
	"time"

	applog "expensetracker/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name for the direct exchange.
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishTransactionEvent publishes a persistent JSON event
func (c *Client) PublishTransactionEvent(ctx context.Context, ev TransactionEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         string(ev.Kind),
			Timestamp:    ev.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	logger(ctx).InfoContext(ctx, "Published transaction event",
		applog.FieldEventKind, ev.Kind,
		applog.FieldTransactionID, ev.TransactionID,
		applog.FieldUserID, ev.UserID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// EventHandler processes one decoded event. Returning an error requeues it.
type EventHandler func(ctx context.Context, ev TransactionEvent) error

// ConsumeTransactionEvents delivers events to handler until ctx is done.
// At most prefetch deliveries are unacknowledged at a time.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, prefetch int, handler EventHandler) error {
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	msgs, err := c.channel.ConsumeWithContext(
		ctx,
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger(ctx).InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			logger(ctx).InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			dispatch(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery dispatch needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// dispatch decodes one delivery and settles it: malformed bodies are dropped,
// handler failures are requeued.
func dispatch(ctx context.Context, body []byte, ack acknowledger, handler EventHandler) {
	ev, err := TransactionEventFromJSON(body)
	if err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to decode event", applog.FieldError, err)
		ack.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to handle event",
			applog.FieldError, err,
			applog.FieldEventKind, ev.Kind,
			applog.FieldTransactionID, ev.TransactionID)
		ack.Nack(false, true)
		return
	}

	ack.Ack(false)
	logger(ctx).DebugContext(ctx, "Processed transaction event",
		applog.FieldEventKind, ev.Kind,
		applog.FieldTransactionID, ev.TransactionID)
}

func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentAMQP)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
