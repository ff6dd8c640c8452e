package watcher

import (
	"context"
	"fmt"

	"github.com/openintents/checkpoint-viewer/pkg/kafka"
	"github.com/openintents/checkpoint-viewer/pkg/kafka/message"
)

const statusVersion = 1

// Producer is satisfied by *kafka.Producer.
type Producer interface {
	Produce(ctx context.Context, msg kafka.Msg) error
}

// Feed publishes one enveloped record per observation, keyed by
// "<chain>/<direction>" so a pair always lands on the same partition.
type Feed struct {
	producer Producer
	topic    string
}

func NewFeed(p Producer, topic string) *Feed {
	return &Feed{producer: p, topic: topic}
}

func (f *Feed) Name() string { return "kafka" }

func (f *Feed) Write(ctx context.Context, snap Snapshot) error {
	for _, o := range snap.Observations {
		key := o.Chain + "/" + string(o.Status.Direction)
		value, err := message.Seal(message.TypeChainStatus, statusVersion, key, snap.TakenAt, o)
		if err != nil {
			return err
		}
		err = f.producer.Produce(ctx, kafka.Msg{
			Topic: f.topic,
			Key:   []byte(key),
			Value: value,
			Headers: map[string]string{
				"type":    message.TypeChainStatus,
				"chain":   o.Chain,
				"version": fmt.Sprint(statusVersion),
			},
		})
		if err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
	}
	return nil
}
