// Package bus provides the event bus contract shared by all services:
// at-least-once publish, consumer-group delivery, bounded retry on handler
// failure and dead-letter routing to <topic>.DLT. The retry policy lives in
// one delivery helper so every backend honours the same contract.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Standard message header keys.
const (
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"

	// Failure metadata attached when a message is routed to a dead-letter
	// topic. The body is forwarded untouched.
	HeaderDeadLetterReason = "dead-letter-reason"
	HeaderDeadLetterTopic  = "dead-letter-topic"
	HeaderDeadLetterAt     = "dead-letter-at"
)

// DLTSuffix is appended to a topic name to form its dead-letter topic.
const DLTSuffix = ".DLT"

// Message is a single fact on the wire. Messages sharing a Key are
// delivered to a given group in publish order; there is no ordering
// guarantee across different keys.
type Message struct {
	Topic   string
	Key     string
	Headers map[string]string
	Body    []byte
}

// NewMessage builds a publishable message with the standard headers set.
// A fresh correlation id is generated when none is supplied.
func NewMessage(topic, key, eventType, schemaVersion string, body []byte) Message {
	return Message{
		Topic: topic,
		Key:   key,
		Headers: map[string]string{
			HeaderEventType:     eventType,
			HeaderCorrelationID: uuid.NewString(),
			HeaderSchemaVersion: schemaVersion,
		},
		Body: body,
	}
}

// Handler processes one delivered message. Returning nil commits progress;
// returning an error triggers the retry policy and eventually dead-letter
// routing. Handlers must be idempotent: restart or rebalance can replay
// uncommitted messages.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends facts with at-least-once semantics. A publish failure is
// the caller's responsibility to handle.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber delivers each message on a topic at least once to exactly one
// member of a consumer group.
type Subscriber interface {
	Subscribe(topic, group string, h Handler) error
}

// Bus combines publishing and subscribing.
type Bus interface {
	Publisher
	Subscriber
}

// RetryPolicy bounds handler retries before a message is dead-lettered.
type RetryPolicy struct {
	Attempts int           // total handler invocations per message
	Backoff  time.Duration // fixed pause between attempts
}

// DefaultRetryPolicy mirrors the consumer error handling this system has
// always run with: three attempts, one second apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: time.Second}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// deliver invokes the handler under the retry policy. When every attempt
// fails the original payload is published to <topic>.DLT with failure
// metadata in the headers and the message is committed. The returned error
// is only non-nil when the dead-letter publish itself failed; callers then
// leave the message uncommitted for redelivery.
func deliver(ctx context.Context, msg Message, h Handler, policy RetryPolicy, dlq Publisher, log *zap.Logger) error {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if lastErr = h(ctx, msg); lastErr == nil {
			return nil
		}
		log.Warn("handler attempt failed",
			zap.String("topic", msg.Topic),
			zap.String("group_key", msg.Key),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < policy.Attempts {
			select {
			case <-time.After(policy.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	dead := Message{
		Topic:   msg.Topic + DLTSuffix,
		Key:     msg.Key,
		Headers: map[string]string{},
		Body:    msg.Body,
	}
	for k, v := range msg.Headers {
		dead.Headers[k] = v
	}
	dead.Headers[HeaderDeadLetterReason] = lastErr.Error()
	dead.Headers[HeaderDeadLetterTopic] = msg.Topic
	dead.Headers[HeaderDeadLetterAt] = time.Now().UTC().Format(time.RFC3339)

	if err := dlq.Publish(ctx, dead); err != nil {
		log.Error("dead-letter publish failed",
			zap.String("topic", dead.Topic),
			zap.Error(err))
		return err
	}
	log.Error("message dead-lettered",
		zap.String("topic", msg.Topic),
		zap.String("dlt", dead.Topic),
		zap.Error(lastErr))
	return nil
}
