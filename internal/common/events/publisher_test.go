package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByFranchise(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "lead-assignments"}

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	event := NewAssignmentEvent(models.Assignment{
		ID: "a-1", LeadID: "lead-1", FranchiseID: "f-1", PhoneID: "p-2",
		Date: "2024-03-01", SelectionPass: models.PassPrimary, CreatedAt: created,
	})
	require.NoError(t, p.PublishAssignment(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "f-1", string(w.msgs[0].Key))
	assert.Equal(t, created, w.msgs[0].Time)

	var decoded AssignmentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "lead-1", decoded.LeadID)
	assert.Equal(t, "p-2", decoded.PhoneID)
	assert.Equal(t, "primary", decoded.SelectionPass)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}, topic: "lead-assignments"}

	err := p.PublishAssignment(context.Background(), AssignmentEvent{AssignmentID: "a-1"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "lead-assignments")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishAssignment(context.Background(), AssignmentEvent{}))
	assert.NoError(t, p.Close())
}
