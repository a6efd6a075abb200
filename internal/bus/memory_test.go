package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 0}
}

func TestPublishDeliversToEachGroupOnce(t *testing.T) {
	b := NewInMemory(testPolicy(), nil)

	var groupA, groupB int
	require.NoError(t, b.Subscribe("dinner.created", "reservation-group", func(ctx context.Context, msg Message) error {
		groupA++
		return nil
	}))
	require.NoError(t, b.Subscribe("dinner.created", "notification-group", func(ctx context.Context, msg Message) error {
		groupB++
		return nil
	}))

	msg := NewMessage("dinner.created", "1", "DinnerCreated", "1", []byte(`{"id":1}`))
	require.NoError(t, b.Publish(context.Background(), msg))

	assert.Equal(t, 1, groupA)
	assert.Equal(t, 1, groupB)
}

func TestPublishPreservesOrderPerKey(t *testing.T) {
	b := NewInMemory(testPolicy(), nil)

	var got []string
	require.NoError(t, b.Subscribe("reservation.created", "g", func(ctx context.Context, msg Message) error {
		got = append(got, string(msg.Body))
		return nil
	}))

	for _, body := range []string{"first", "second", "third"} {
		msg := NewMessage("reservation.created", "dinner-7", "ReservationCreated", "1", []byte(body))
		require.NoError(t, b.Publish(context.Background(), msg))
	}

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestFailingHandlerRetriesThenDeadLetters(t *testing.T) {
	b := NewInMemory(testPolicy(), nil)

	attempts := 0
	require.NoError(t, b.Subscribe("invoice.created", "notification-group", func(ctx context.Context, msg Message) error {
		attempts++
		return errors.New("boom")
	}))

	var dead []Message
	require.NoError(t, b.Subscribe("invoice.created"+DLTSuffix, "ops", func(ctx context.Context, msg Message) error {
		dead = append(dead, msg)
		return nil
	}))

	original := NewMessage("invoice.created", "guest-5", "InvoiceCreated", "1", []byte(`{"invoice_id":"inv-1"}`))
	require.NoError(t, b.Publish(context.Background(), original))

	assert.Equal(t, 3, attempts, "handler should be invoked exactly Attempts times")
	require.Len(t, dead, 1)
	assert.Equal(t, original.Body, dead[0].Body, "dead letter must carry the original payload intact")
	assert.Equal(t, "invoice.created", dead[0].Headers[HeaderDeadLetterTopic])
	assert.Equal(t, "boom", dead[0].Headers[HeaderDeadLetterReason])
	assert.NotEmpty(t, dead[0].Headers[HeaderDeadLetterAt])
	assert.Equal(t, original.Headers[HeaderCorrelationID], dead[0].Headers[HeaderCorrelationID])
}

func TestRecoveringHandlerCommitsWithoutDeadLetter(t *testing.T) {
	b := NewInMemory(testPolicy(), nil)

	attempts := 0
	require.NoError(t, b.Subscribe("dinner.started", "g", func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}))

	deadLetters := 0
	require.NoError(t, b.Subscribe("dinner.started"+DLTSuffix, "ops", func(ctx context.Context, msg Message) error {
		deadLetters++
		return nil
	}))

	require.NoError(t, b.Publish(context.Background(), NewMessage("dinner.started", "1", "DinnerStarted", "1", nil)))

	assert.Equal(t, 2, attempts)
	assert.Zero(t, deadLetters)
}

func TestNewMessageSetsStandardHeaders(t *testing.T) {
	msg := NewMessage("dinner.created", "9", "DinnerCreated", "1", nil)

	assert.Equal(t, "DinnerCreated", msg.Headers[HeaderEventType])
	assert.Equal(t, "1", msg.Headers[HeaderSchemaVersion])
	assert.NotEmpty(t, msg.Headers[HeaderCorrelationID])
}
