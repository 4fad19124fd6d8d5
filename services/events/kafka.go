package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/mergington/core/activity"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes activity events to a Kafka topic, keyed by activity name.
type KafkaPublisher struct {
	writer messageWriter
}

var _ activity.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishParticipantJoined(ctx context.Context, evt activity.ParticipantJoined) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	msg := kafka.Message{
		Key:   []byte(evt.Activity),
		Value: payload,
		Time:  evt.JoinedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(activity.EventParticipantJoined)},
		},
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msg), "writing message")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event; used when no broker is configured.
type NoopPublisher struct{}

var _ activity.EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishParticipantJoined(context.Context, activity.ParticipantJoined) error {
	return nil
}
