package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// InMemory is an in-process bus used by tests and single-binary local runs.
// Delivery is synchronous: Publish invokes every subscribed group's handler
// before returning, so publish order is delivery order for every key and a
// message reaches exactly one handler per group. The retry/dead-letter
// contract is identical to the AMQP backend because both share deliver().
type InMemory struct {
	mu     sync.RWMutex
	groups map[string]map[string]Handler // topic -> group -> handler
	policy RetryPolicy
	log    *zap.Logger
}

// NewInMemory builds an in-memory bus with the given retry policy.
func NewInMemory(policy RetryPolicy, log *zap.Logger) *InMemory {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemory{
		groups: make(map[string]map[string]Handler),
		policy: policy.normalized(),
		log:    log,
	}
}

// Subscribe registers the handler for a topic and group. A second
// subscription for the same topic/group replaces the previous handler,
// mirroring a group rebalance to a new member.
func (b *InMemory) Subscribe(topic, group string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[topic] == nil {
		b.groups[topic] = make(map[string]Handler)
	}
	b.groups[topic][group] = h
	return nil
}

// Publish delivers the message to every group subscribed to its topic,
// applying the retry policy and dead-letter routing on handler failure.
// Messages published to topics with no subscribers are dropped, as on a
// broker with no bound queues.
func (b *InMemory) Publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.groups[msg.Topic]))
	for _, h := range b.groups[msg.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := deliver(ctx, msg, h, b.policy, b, b.log); err != nil {
			return err
		}
	}
	return nil
}
