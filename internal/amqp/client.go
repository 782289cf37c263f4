package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	// maxFailures is how many consecutive publish failures open the circuit
	maxFailures = 5

	// openTimeout is how long the circuit stays open before a probe is allowed
	openTimeout = 30 * time.Second

	// maxBackoff caps the reconnect delay
	maxBackoff = 30 * time.Second
)

// Handlers dispatches consumed messages by message type. A nil handler drops
// the corresponding message kind without requeueing.
type Handlers struct {
	OnLogSync        func(*LogSyncMessage) error
	OnSummaryRefresh func(*SummaryRefreshMessage) error
}

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// Circuit breaker state
	failureCount int64
	state        int32
	failureMu    sync.Mutex
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	client.mu.Lock()
	err := client.connectLocked()
	client.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return client, nil
}

// connectLocked dials the broker and declares the exchange, queue and
// binding. Caller must hold c.mu.
func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func (c *Client) setup(channel *amqp091.Channel) error {
	// Declare exchange
	err := channel.ExchangeDeclare(
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

	// Declare queue
	_, err = channel.QueueDeclare(
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

	// Bind queue to exchange
	err = channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// ensureConnection reconnects if the connection or channel dropped
func (c *Client) ensureConnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil {
		return nil
	}

	c.closeLocked()
	return c.connectLocked()
}

// PublishLogSync publishes a log sync message for the given log ID
func (c *Client) PublishLogSync(ctx context.Context, logID string, deleted bool) error {
	msg := NewLogSyncMessage(logID, deleted)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published log sync message",
		"log_id", logID,
		"deleted", deleted,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishSummaryRefresh publishes a summary refresh message for the given date
func (c *Client) PublishSummaryRefresh(ctx context.Context, date string) error {
	msg := NewSummaryRefreshMessage(date)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published summary refresh message",
		"date", date,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish message: circuit breaker is open")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.ensureConnection(); err != nil {
		c.recordFailure()
		return fmt.Errorf("connect for publish: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	err := channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	return nil
}

// Consume receives messages until the context is cancelled, reconnecting
// with exponential backoff when the broker connection drops.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.ensureConnection(); err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			slog.WarnContext(ctx, "AMQP connection failed, retrying",
				"wait", wait,
				"attempt", attempt,
				"error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		if err := c.consumeOnce(ctx, handlers); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.WarnContext(ctx, "Message channel closed, reconnecting", "error", err)
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handlers Handlers) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	msgs, err := channel.Consume(
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

	slog.InfoContext(ctx, "Started consuming sync messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			permanent, err := handleDelivery(ctx, delivery.Body, handlers)
			if err != nil {
				if permanent {
					slog.ErrorContext(ctx, "Dropping message", "error", err)
					delivery.Nack(false, false) // reject and don't requeue
				} else {
					slog.ErrorContext(ctx, "Failed to handle message", "error", err)
					delivery.Nack(false, true) // reject and requeue
				}
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

// handleDelivery dispatches one delivery to the matching handler. The
// returned bool reports whether a failure is permanent, in which case the
// message must not be requeued.
func handleDelivery(ctx context.Context, body []byte, handlers Handlers) (bool, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return true, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case TypeLogSync:
		msg, err := LogSyncMessageFromJSON(body)
		if err != nil {
			return true, fmt.Errorf("unmarshal log sync message: %w", err)
		}
		if handlers.OnLogSync == nil {
			return true, fmt.Errorf("no handler for %s messages", TypeLogSync)
		}
		slog.InfoContext(ctx, "Processing log sync message",
			"log_id", msg.LogID,
			"deleted", msg.Deleted)
		if err := msg.Validate(); err != nil {
			return true, err
		}
		if err := handlers.OnLogSync(msg); err != nil {
			return false, err
		}
		return false, nil

	case TypeSummaryRefresh:
		msg, err := SummaryRefreshMessageFromJSON(body)
		if err != nil {
			return true, fmt.Errorf("unmarshal summary refresh message: %w", err)
		}
		if handlers.OnSummaryRefresh == nil {
			return true, fmt.Errorf("no handler for %s messages", TypeSummaryRefresh)
		}
		slog.InfoContext(ctx, "Processing summary refresh message", "date", msg.Date)
		if err := msg.Validate(); err != nil {
			return true, err
		}
		if err := handlers.OnSummaryRefresh(msg); err != nil {
			return false, err
		}
		return false, nil

	default:
		return true, fmt.Errorf("unknown message type: %q", env.Type)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// exponentialBackoff returns the reconnect delay for the given attempt,
// doubling from one second and capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	backoff := time.Second << uint(attempt)
	if backoff <= 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// isConnectionError reports whether err looks like a dropped broker
// connection rather than a payload or handler problem.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection closed",
		"eof",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (c *Client) recordFailure() {
	count := atomic.AddInt64(&c.failureCount, 1)

	c.failureMu.Lock()
	c.lastFailure = time.Now()
	c.failureMu.Unlock()

	if count >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.failureMu.Lock()
	last := c.lastFailure
	c.failureMu.Unlock()

	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}
