package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core/activity"
)

type writerMock struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *writerMock) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishParticipantJoined(t *testing.T) {
	w := new(writerMock)
	pub := &KafkaPublisher{writer: w}

	joinedAt := time.Date(2024, 9, 2, 15, 30, 0, 0, time.UTC)
	evt := activity.ParticipantJoined{Activity: "Chess Club", Email: "test@mergington.edu", JoinedAt: joinedAt}
	require.NoError(t, pub.PublishParticipantJoined(context.Background(), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "Chess Club", string(msg.Key))
	assert.Equal(t, joinedAt, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, activity.EventParticipantJoined, string(msg.Headers[0].Value))

	var got activity.ParticipantJoined
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, evt, got)

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_PublishParticipantJoined_writeError(t *testing.T) {
	pub := &KafkaPublisher{writer: &writerMock{err: errors.New("broker down")}}

	err := pub.PublishParticipantJoined(context.Background(), activity.ParticipantJoined{Activity: "Art Club"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
