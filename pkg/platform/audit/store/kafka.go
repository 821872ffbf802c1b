package store

import (
	"context"
	"encoding/json"
	"fmt"

	authcontracts "salesgate/contracts/auth"
	"salesgate/internal/platform/kafka/producer"
	audit "salesgate/pkg/platform/audit"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaStore publishes each event as a versioned AuditRecord keyed by user
// id, so a user's events stay ordered within one partition.
type KafkaStore struct {
	producer Producer
	topic    string
}

func NewKafka(p Producer, topic string) *KafkaStore {
	return &KafkaStore{producer: p, topic: topic}
}

func toRecord(e audit.Event) authcontracts.AuditRecord {
	rec := authcontracts.AuditRecord{
		Timestamp:   e.Timestamp.UTC(),
		Action:      e.Action,
		TenantScope: e.TenantScope,
		Decision:    e.Decision,
		Reason:      e.Reason,
		DeviceName:  e.DeviceName,
		ClientIP:    e.ClientIP,
		RequestID:   e.RequestID,
	}
	if !e.UserID.IsNil() {
		rec.UserID = e.UserID.String()
	}
	if !e.SessionID.IsNil() {
		rec.SessionID = e.SessionID.String()
	}
	return rec
}

func (s *KafkaStore) Append(ctx context.Context, event audit.Event) error {
	rec := toRecord(event)
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(rec.UserID),
		Value: value,
		Headers: map[string]string{
			authcontracts.HeaderEventType:       rec.Action,
			authcontracts.HeaderContractVersion: authcontracts.ContractVersion,
		},
	}
	if rec.RequestID != "" {
		msg.Headers[authcontracts.HeaderRequestID] = rec.RequestID
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
