package consumer

import (
	"context"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

type capturedUpdate struct {
	outbox  string
	updates map[string]domain.RecipientStatus
}

type fakeUpdater struct {
	calls []capturedUpdate
}

func (f *fakeUpdater) UpdateRecipientStatus(_ context.Context, outbox string, updates map[string]domain.RecipientStatus) error {
	f.calls = append(f.calls, capturedUpdate{outbox: outbox, updates: updates})
	return nil
}

func TestHandleAppliesReceipt(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewReceiptHandler(updater, slog.Default())

	msg := kafka.Message{
		Topic: DeliveryReceiptTopic,
		Value: []byte(`{"outbox":"OTB-1","statuses":{"row-1":"SUCCESS","row-2":"FAILED"}}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, updater.calls, 1)
	assert.Equal(t, "OTB-1", updater.calls[0].outbox)
	assert.Equal(t, domain.RecipientStatusSuccess, updater.calls[0].updates["row-1"])
	assert.Equal(t, domain.RecipientStatusFailed, updater.calls[0].updates["row-2"])
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewReceiptHandler(updater, slog.Default())

	msg := kafka.Message{Topic: DeliveryReceiptTopic, Value: []byte(`{not json`)}
	assert.NoError(t, h.Handle(context.Background(), msg))
	assert.Empty(t, updater.calls)
}

func TestHandleFiltersUnknownStatuses(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewReceiptHandler(updater, slog.Default())

	msg := kafka.Message{
		Topic: DeliveryReceiptTopic,
		Value: []byte(`{"outbox":"OTB-1","statuses":{"row-1":"DELIVERED","row-2":"SUCCESS"}}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, updater.calls, 1)
	assert.Len(t, updater.calls[0].updates, 1)
	assert.Equal(t, domain.RecipientStatusSuccess, updater.calls[0].updates["row-2"])
}

func TestHandleIgnoresEmptyReceipt(t *testing.T) {
	updater := &fakeUpdater{}
	h := NewReceiptHandler(updater, slog.Default())

	msg := kafka.Message{Topic: DeliveryReceiptTopic, Value: []byte(`{"outbox":"","statuses":{}}`)}
	assert.NoError(t, h.Handle(context.Background(), msg))
	assert.Empty(t, updater.calls)
}
