package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authcontracts "salesgate/contracts/auth"
	"salesgate/internal/platform/kafka/producer"
	id "salesgate/pkg/domain"
	audit "salesgate/pkg/platform/audit"
)

func TestInMemoryStore_DropsOldestPastCapacity(t *testing.T) {
	s := NewInMemory(2)
	ctx := context.Background()
	for _, action := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, audit.Event{Action: action}))
	}

	events, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Action)
	assert.Equal(t, "c", events[1].Action)
}

func TestInMemoryStore_ListByUser(t *testing.T) {
	s := NewInMemory(0)
	ctx := context.Background()
	u1, u2 := id.NewUserID(), id.NewUserID()
	require.NoError(t, s.Append(ctx, audit.Event{UserID: u1, Action: "a"}))
	require.NoError(t, s.Append(ctx, audit.Event{UserID: u2, Action: "b"}))

	events, err := s.ListByUser(ctx, u1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Action)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Produce(ctx context.Context, msg *producer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestKafkaStore_AppendPublishesKeyedJSON(t *testing.T) {
	p := new(mockProducer)
	s := NewKafka(p, "salesgate.audit")

	userID := id.NewUserID()
	sessionID := id.NewSessionID()
	event := audit.Event{
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Action:      string(audit.EventSessionRevoked),
		UserID:      userID,
		SessionID:   sessionID,
		TenantScope: "acme",
		Reason:      "logout",
		RequestID:   "req-1",
	}

	var sent *producer.Message
	p.On("Produce", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*producer.Message)
	}).Return(nil)

	require.NoError(t, s.Append(context.Background(), event))
	require.NotNil(t, sent)
	assert.Equal(t, "salesgate.audit", sent.Topic)
	assert.Equal(t, userID.String(), string(sent.Key))
	assert.Equal(t, "session_revoked", sent.Headers["event_type"])
	assert.Equal(t, "req-1", sent.Headers["request_id"])
	assert.Equal(t, authcontracts.ContractVersion, sent.Headers["contract_version"])

	var rec authcontracts.AuditRecord
	require.NoError(t, json.Unmarshal(sent.Value, &rec))
	assert.Equal(t, userID.String(), rec.UserID)
	assert.Equal(t, "logout", rec.Reason)

	var body map[string]any
	require.NoError(t, json.Unmarshal(sent.Value, &body))
	assert.Equal(t, sessionID.String(), body["session_id"])
	assert.Equal(t, "acme", body["tenant_scope"])
	assert.Equal(t, "logout", body["reason"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["timestamp"])
}

func TestKafkaStore_OmitsNilIdentifiers(t *testing.T) {
	p := new(mockProducer)
	s := NewKafka(p, "audit")

	var sent *producer.Message
	p.On("Produce", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*producer.Message)
	}).Return(nil)

	require.NoError(t, s.Append(context.Background(), audit.Event{Action: string(audit.EventAuthFailed)}))
	assert.Empty(t, sent.Key)
	assert.NotContains(t, string(sent.Value), "user_id")
	assert.NotContains(t, string(sent.Value), "session_id")
}

func TestKafkaStore_WrapsProducerError(t *testing.T) {
	p := new(mockProducer)
	p.On("Produce", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := NewKafka(p, "audit").Append(context.Background(), audit.Event{Action: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
