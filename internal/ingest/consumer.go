// Package ingest implements the Ingest Consumer (C8): an at-least-once
// RabbitMQ consumer that dispatches candidate change events to the Indexer,
// with dead-lettering for malformed or failed messages and bounded
// concurrency for the CPU-bound embedding step.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/itrecruiter/candidatesearch/internal/candidate"
	searcherrors "github.com/itrecruiter/candidatesearch/internal/errors"
	"github.com/itrecruiter/candidatesearch/internal/workerpool"
)

// Routing keys dispatched per spec §4.8.
const (
	RoutingCreated = "candidate.created"
	RoutingUpdated = "candidate.updated"
	RoutingDeleted = "candidate.deleted"
)

const (
	defaultPrefetch           = 1
	defaultMaxConnectAttempts = 5
	backoffBase               = 2.0
)

// Indexer is the subset of the Indexer (C6) the consumer dispatches to.
// UpsertLexical and UpsertVector are kept separate so the consumer can run
// the first inline and the second on its bounded worker pool, per spec
// §4.8.
type Indexer interface {
	UpsertLexical(ctx context.Context, c candidate.Candidate) error
	UpsertVector(ctx context.Context, c candidate.Candidate) error
	Delete(ctx context.Context, id string) error
}

// Config configures the Consumer.
type Config struct {
	AMQPURL            string
	ExchangeName       string
	QueueName          string
	RoutingPattern     string // default "candidate.*"
	PoolSize           int    // default workerpool.DefaultSize (4)
	MaxConnectAttempts int    // default 5, exponential backoff base 2
}

func (c Config) withDefaults() Config {
	if c.RoutingPattern == "" {
		c.RoutingPattern = "candidate.*"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = workerpool.DefaultSize
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = defaultMaxConnectAttempts
	}
	if c.QueueName == "" {
		c.QueueName = c.ExchangeName + ".queue"
	}
	return c
}

func (c Config) dlxName() string { return c.ExchangeName + ".dlx" }
func (c Config) dlqName() string { return c.ExchangeName + ".dlq" }

// Consumer is the Ingest Consumer (C8).
type Consumer struct {
	cfg     Config
	indexer Indexer
	pool    *workerpool.Pool
	logger  *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New builds a Consumer wired to its Indexer.
func New(cfg Config, indexer Indexer, logger *slog.Logger) *Consumer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:     cfg,
		indexer: indexer,
		pool:    workerpool.New(cfg.PoolSize),
		logger:  logger,
	}
}

// Run connects, declares topology, and consumes until ctx is cancelled or
// the channel closes unexpectedly. It blocks for the lifetime of the
// consumer; callers typically run it in its own goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}

	deliveries, err := c.channel.Consume(c.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return searcherrors.New(searcherrors.ErrCodeBusChannel, "failed to start consuming", err)
	}

	closeNotify := c.channel.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return c.shutdown()
		case amqpErr, ok := <-closeNotify:
			if !ok {
				return nil
			}
			return searcherrors.New(searcherrors.ErrCodeBusConnect, "amqp channel closed", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// connect dials the broker with exponential backoff (base 2, spec §4.8) and
// declares the exchange/queue/DLX topology.
func (c *Consumer) connect(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxConnectAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(backoffBase, float64(attempt))) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		conn, err := amqp.Dial(c.cfg.AMQPURL)
		if err != nil {
			lastErr = err
			c.logger.Warn("message bus connect attempt failed", "attempt", attempt+1, "error", err.Error())
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}

		if err := c.declareTopology(ch); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			lastErr = err
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.channel = ch
		c.mu.Unlock()
		return nil
	}

	return searcherrors.New(searcherrors.ErrCodeBusConnect,
		fmt.Sprintf("failed to connect to message bus after %d attempts", c.cfg.MaxConnectAttempts), lastErr)
}

// declareTopology declares the topic exchange, the dead-letter exchange and
// queue, and the durable main queue bound with RoutingPattern and
// dead-lettering into the DLX, per spec §4.8.
func (c *Consumer) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.cfg.ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(c.cfg.dlxName(), "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	dlq, err := ch.QueueDeclare(c.cfg.dlqName(), true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(dlq.Name, "#", c.cfg.dlxName(), false, nil); err != nil {
		return err
	}

	mainQueue, err := ch.QueueDeclare(c.cfg.QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": c.cfg.dlxName(),
	})
	if err != nil {
		return err
	}
	if err := ch.QueueBind(mainQueue.Name, c.cfg.RoutingPattern, c.cfg.ExchangeName, false, nil); err != nil {
		return err
	}

	return ch.Qos(defaultPrefetch, 0, false)
}

// deletedPayload is the expected body shape for candidate.deleted events.
type deletedPayload struct {
	ID string `json:"id"`
}

// handleDelivery dispatches by routing key. The lexical write runs
// synchronously here (the I/O scheduler); for created/updated events the
// embed+vector-upsert step is handed to the bounded worker pool so
// embedding latency never stalls message dispatch.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	switch d.RoutingKey {
	case RoutingCreated, RoutingUpdated:
		c.handleUpsert(ctx, d)
	case RoutingDeleted:
		c.handleDelete(ctx, d)
	default:
		c.logger.Warn("rejecting message with unrecognized routing key", "routing_key", d.RoutingKey)
		c.rejectNoRequeue(d)
	}
}

func (c *Consumer) handleUpsert(ctx context.Context, d amqp.Delivery) {
	var cand candidate.Candidate
	if err := json.Unmarshal(d.Body, &cand); err != nil {
		c.logger.Warn("rejecting malformed candidate payload", "error", err.Error())
		c.rejectNoRequeue(d)
		return
	}

	if err := c.indexer.UpsertLexical(ctx, cand); err != nil {
		c.logger.Warn("lexical upsert failed", "candidate_id", cand.ID, "error", err.Error())
		c.rejectNoRequeue(d)
		return
	}

	c.pool.Submit(func() {
		if err := c.indexer.UpsertVector(ctx, cand); err != nil {
			c.logger.Warn("vector upsert failed", "candidate_id", cand.ID, "error", err.Error())
			c.rejectNoRequeue(d)
			return
		}
		c.ack(d)
	})
}

func (c *Consumer) handleDelete(ctx context.Context, d amqp.Delivery) {
	var payload deletedPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil || payload.ID == "" {
		c.logger.Warn("rejecting candidate.deleted message missing id")
		c.rejectNoRequeue(d)
		return
	}

	if err := c.indexer.Delete(ctx, payload.ID); err != nil {
		c.logger.Warn("delete failed", "candidate_id", payload.ID, "error", err.Error())
		c.rejectNoRequeue(d)
		return
	}
	c.ack(d)
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Warn("failed to ack delivery", "error", err.Error())
	}
}

// rejectNoRequeue rejects without requeueing — the message lands in the DLQ
// and is never redelivered, preventing poison-message loops (spec §4.8).
func (c *Consumer) rejectNoRequeue(d amqp.Delivery) {
	if err := d.Reject(false); err != nil {
		c.logger.Warn("failed to reject delivery", "error", err.Error())
	}
}

// CheckConnection reports broker connection liveness for a health endpoint.
func (c *Consumer) CheckConnection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// shutdown is invoked when Run's context is cancelled: it drains the worker
// pool so no in-flight upsert is abandoned, then closes the channel and
// connection.
func (c *Consumer) shutdown() error {
	c.pool.Wait()
	return c.Close()
}

// Close closes the channel and connection without waiting for in-flight
// work. Run's normal shutdown path calls shutdown (which waits) instead;
// Close is exposed directly for callers that need to force-close.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
