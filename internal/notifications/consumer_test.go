package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/aquafindr/aquafindr-backend/pkg/db/models"
	"github.com/aquafindr/aquafindr-backend/pkg/enums"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/idempotency"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/payloads"
)

type captureRepo struct {
	created []*models.Notification
	err     error
}

func (c *captureRepo) Create(ctx context.Context, notification *models.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.created = append(c.created, notification)
	return nil
}

type memoryStore struct {
	keys    map[string]bool
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]bool{}}
}

func (m *memoryStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "af:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, repo repository, store *memoryStore) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "notifications-test"})
	return &Consumer{repo: repo, idempotency: manager, logg: logg}
}

func notificationMessage(t *testing.T, eventID uuid.UUID, payload payloads.NotificationRequestedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-1",
		Data:       raw,
		Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)},
	}
}

func TestConsumerCreatesNotificationRow(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(t, repo, newMemoryStore())

	payload := payloads.NotificationRequestedEvent{
		BookingID: uuid.New(),
		Recipient: uuid.New(),
		Kind:      enums.RecipientVendor,
		Event:     enums.NotifyBookingAssigned,
	}
	result := consumer.process(context.Background(), notificationMessage(t, uuid.New(), payload))
	if result.nack {
		t.Fatal("expected ack")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.RecipientID != payload.Recipient || row.Event != enums.NotifyBookingAssigned {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.BookingID == nil || *row.BookingID != payload.BookingID {
		t.Fatalf("booking id not carried: %+v", row.BookingID)
	}
	if row.Title == "" || row.Message == "" {
		t.Fatalf("empty copy: %+v", row)
	}
}

func TestConsumerSkipsForeignEventTypes(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(t, repo, newMemoryStore())

	msg := &pubsub.Message{
		ID:         "msg-2",
		Data:       []byte("{}"),
		Attributes: map[string]string{"event_type": string(enums.EventBookingCreated)},
	}
	result := consumer.process(context.Background(), msg)
	if result.nack {
		t.Fatal("expected ack for skipped event")
	}
	if len(repo.created) != 0 {
		t.Fatalf("unexpected notification created")
	}
}

func TestConsumerDeduplicatesByEventID(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(t, repo, newMemoryStore())

	eventID := uuid.New()
	payload := payloads.NotificationRequestedEvent{
		BookingID: uuid.New(),
		Recipient: uuid.New(),
		Kind:      enums.RecipientCustomer,
		Event:     enums.NotifyReportUploaded,
	}
	first := consumer.process(context.Background(), notificationMessage(t, eventID, payload))
	second := consumer.process(context.Background(), notificationMessage(t, eventID, payload))
	if first.nack || second.nack {
		t.Fatal("expected both deliveries acked")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification after redelivery, got %d", len(repo.created))
	}
}

func TestConsumerReleasesKeyOnRepoFailure(t *testing.T) {
	repo := &captureRepo{err: context.DeadlineExceeded}
	store := newMemoryStore()
	consumer := newTestConsumer(t, repo, store)

	payload := payloads.NotificationRequestedEvent{
		BookingID: uuid.New(),
		Recipient: uuid.New(),
		Kind:      enums.RecipientVendor,
		Event:     enums.NotifySiteVisited,
	}
	result := consumer.process(context.Background(), notificationMessage(t, uuid.New(), payload))
	if !result.nack {
		t.Fatal("expected nack on repo failure")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected idempotency key release, deleted=%v", store.deleted)
	}
}
