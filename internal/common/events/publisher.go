// Package events publishes assignment facts for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"leadflow-workers/internal/models"
)

// AssignmentEvent is the payload written for every recorded assignment.
type AssignmentEvent struct {
	AssignmentID  string    `json:"assignmentId"`
	LeadID        string    `json:"leadId"`
	FranchiseID   string    `json:"franchiseId"`
	PhoneID       string    `json:"phoneId"`
	ServerID      string    `json:"serverId,omitempty"`
	Date          string    `json:"date"`
	SelectionPass string    `json:"selectionPass,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewAssignmentEvent builds the event for a stored assignment.
func NewAssignmentEvent(a models.Assignment) AssignmentEvent {
	occurred := a.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return AssignmentEvent{
		AssignmentID:  a.ID,
		LeadID:        a.LeadID,
		FranchiseID:   a.FranchiseID,
		PhoneID:       a.PhoneID,
		ServerID:      a.ServerID,
		Date:          a.Date,
		SelectionPass: a.SelectionPass,
		OccurredAt:    occurred,
	}
}

type Publisher interface {
	PublishAssignment(ctx context.Context, event AssignmentEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by franchise id so one franchise's
// assignments land on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

func (k *KafkaPublisher) PublishAssignment(ctx context.Context, event AssignmentEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal assignment event %s: %w", event.AssignmentID, err)
	}

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.FranchiseID),
		Value: v,
		Time:  event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("publish assignment %s to %s: %w", event.AssignmentID, k.topic, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishAssignment(context.Context, AssignmentEvent) error { return nil }
func (NoopPublisher) Close() error { return nil }
