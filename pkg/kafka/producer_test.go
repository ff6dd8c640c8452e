package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestProducer(t *testing.T, ctx context.Context) *Producer {
	t.Helper()
	p, err := NewProducer(ctx, &kafka.ConfigMap{"bootstrap.servers": "localhost:9092"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return p
}

func TestProducer_CloseIsIdempotent(t *testing.T) {
	p := newTestProducer(t, t.Context())

	errCh := p.Errors()
	assert.Positive(t, cap(errCh))

	p.Close(time.Second)
	p.Close(time.Second)

	_, ok := <-errCh
	assert.False(t, ok, "error channel is closed after Close")
}

func TestProducer_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := newTestProducer(t, ctx)

	cancel()
	err := p.Produce(ctx, Msg{Topic: "status", Value: []byte("{}")})
	require.ErrorIs(t, err, context.Canceled)

	p.Close(time.Second)
}

func TestHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, headers(nil))
	got := headers(map[string]string{"chain": "taiko"})
	require.Len(t, got, 1)
	assert.Equal(t, "chain", got[0].Key)
	assert.Equal(t, []byte("taiko"), got[0].Value)
}

func TestHandleDeliveryEvent(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t).Sugar()
	topic := "status"
	msg := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny}}

	ok := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Offset: 12}}
	require.NoError(t, handleDeliveryEvent(log, msg, ok))

	failed := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Error: errors.New("broker down")}}
	require.ErrorContains(t, handleDeliveryEvent(log, msg, failed), "delivery failed")

	require.ErrorContains(t, handleDeliveryEvent(log, msg, kafka.Error{}), "unexpected delivery event")
}
