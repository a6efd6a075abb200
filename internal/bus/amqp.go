package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQP is the RabbitMQ-backed bus used in production. Each topic is a
// durable fanout exchange; each consumer group is a durable queue named
// <topic>.<group> bound to it, so every group sees every message and each
// message reaches exactly one member of a group. Consumption runs with
// prefetch 1 and manual acks, which keeps delivery within a queue strictly
// sequential. Dead-letter topics are plain durable queues on the default
// exchange so dead letters park without requiring a consumer.
type AMQP struct {
	url    string
	policy RetryPolicy
	log    *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQP builds an AMQP bus. No connection is made until first use.
func NewAMQP(url string, policy RetryPolicy, log *zap.Logger) *AMQP {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQP{url: url, policy: policy.normalized(), log: log}
}

// Publish sends the message with persistent delivery mode. The connection
// is (re)established lazily; a failed publish is returned to the caller.
func (b *AMQP) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, err := b.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headersToTable(msg.Headers),
		Body:         msg.Body,
	}

	if strings.HasSuffix(msg.Topic, DLTSuffix) {
		// Dead letters go straight to a named durable queue.
		if _, err := ch.QueueDeclare(msg.Topic, true, false, false, false, nil); err != nil {
			b.reset()
			return fmt.Errorf("dead-letter queue declare: %w", err)
		}
		if err := ch.PublishWithContext(ctx, "", msg.Topic, false, false, pub); err != nil {
			b.reset()
			return fmt.Errorf("dead-letter publish: %w", err)
		}
		return nil
	}

	if err := ch.ExchangeDeclare(msg.Topic, "fanout", true, false, false, false, nil); err != nil {
		b.reset()
		return fmt.Errorf("exchange declare: %w", err)
	}
	if err := ch.PublishWithContext(ctx, msg.Topic, msg.Key, false, false, pub); err != nil {
		b.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe starts a background consume loop for the topic and group. The
// loop reconnects with capped exponential backoff and only stops when the
// process exits. Handler failures are retried and dead-lettered by
// deliver(); the message is acked once deliver commits, nacked for
// redelivery when the dead-letter publish itself failed.
func (b *AMQP) Subscribe(topic, group string, h Handler) error {
	go b.consumeForever(topic, group, h)
	return nil
}

func (b *AMQP) consumeForever(topic, group string, h Handler) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			b.log.Warn("broker dial failed",
				zap.String("topic", topic),
				zap.String("group", group),
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := b.consumeLoop(conn, topic, group, h); err != nil {
			b.log.Warn("consume loop ended, reconnecting",
				zap.String("topic", topic),
				zap.String("group", group),
				zap.Error(err))
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func (b *AMQP) consumeLoop(conn *amqp.Connection, topic, group string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch 1 keeps delivery within the queue strictly sequential.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if err := ch.ExchangeDeclare(topic, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	queue := topic + "." + group
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queue, "", topic, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		msg := Message{
			Topic:   topic,
			Key:     d.RoutingKey,
			Headers: tableToHeaders(d.Headers),
			Body:    d.Body,
		}
		if err := deliver(context.Background(), msg, h, b.policy, b, b.log); err != nil {
			// Dead-letter publish failed: leave the message uncommitted.
			_ = d.Nack(false, true)
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("deliveries channel closed")
}

// channel returns the shared publisher channel, dialing if needed. Callers
// must hold b.mu.
func (b *AMQP) channel() (*amqp.Channel, error) {
	if b.ch != nil {
		return b.ch, nil
	}
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("broker dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	b.conn = conn
	b.ch = ch
	return ch, nil
}

// reset drops the cached connection so the next publish redials. Callers
// must hold b.mu.
func (b *AMQP) reset() {
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

func headersToTable(h map[string]string) amqp.Table {
	t := amqp.Table{}
	for k, v := range h {
		t[k] = v
	}
	return t
}

func tableToHeaders(t amqp.Table) map[string]string {
	h := make(map[string]string, len(t))
	for k, v := range t {
		if s, ok := v.(string); ok {
			h[k] = s
		}
	}
	return h
}
