package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// recordingUpdater 记录状态回报
type recordingUpdater struct {
	updates map[string]map[string]domain.RecipientStatus
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{updates: make(map[string]map[string]domain.RecipientStatus)}
}

func (u *recordingUpdater) UpdateRecipientStatus(_ context.Context, outbox string, updates map[string]domain.RecipientStatus) error {
	merged, ok := u.updates[outbox]
	if !ok {
		merged = make(map[string]domain.RecipientStatus)
		u.updates[outbox] = merged
	}
	for row, status := range updates {
		merged[row] = status
	}
	return nil
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("email")
	assert.False(t, ok)

	h := NewMockHandler(newRecordingUpdater())
	r.Register("email", h)
	got, ok := r.Lookup("email")
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestEmailHandlerValidate(t *testing.T) {
	h := NewEmailHandler("localhost", "25", "", "", newRecordingUpdater())

	err := h.Invoke(context.Background(), domain.HandlerParams{
		ToValidate: true,
		ChannelID:  "not-an-address",
		Sender:     "noreply@example.com",
	})
	assert.Error(t, err)

	err = h.Invoke(context.Background(), domain.HandlerParams{
		ToValidate: true,
		ChannelID:  "ok@example.com",
	})
	assert.Error(t, err, "missing sender must fail validation")

	err = h.Invoke(context.Background(), domain.HandlerParams{
		ToValidate: true,
		ChannelID:  "ok@example.com",
		Sender:     "noreply@example.com",
	})
	assert.NoError(t, err)
}

func TestEmailHandlerReportsSuccess(t *testing.T) {
	updater := newRecordingUpdater()
	h := NewEmailHandler("localhost", "25", "", "", updater)

	err := h.Invoke(context.Background(), domain.HandlerParams{
		Outbox:        "OTB-1",
		OutboxRowName: "row-1",
		ChannelID:     "ok@example.com",
		Sender:        "noreply@example.com",
		Subject:       "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecipientStatusSuccess, updater.updates["OTB-1"]["row-1"])
}

func TestSMSHandlerValidate(t *testing.T) {
	h := NewSMSHandler("https://gateway.local", "key", newRecordingUpdater())

	valid := []string{"+8613800138000", "13800138000", "+14155552671"}
	for _, num := range valid {
		err := h.Invoke(context.Background(), domain.HandlerParams{ToValidate: true, ChannelID: num})
		assert.NoError(t, err, num)
	}

	invalid := []string{"", "abc", "+0123", "12", "+86 138 0013 8000"}
	for _, num := range invalid {
		err := h.Invoke(context.Background(), domain.HandlerParams{ToValidate: true, ChannelID: num})
		assert.Error(t, err, num)
	}
}

func TestFCMHandlerBatchReportsPerRow(t *testing.T) {
	updater := newRecordingUpdater()
	h := NewFCMHandler("server-key", updater)

	err := h.Invoke(context.Background(), domain.HandlerParams{
		Outbox: "OTB-1",
		Recipients: []domain.BatchRecipientItem{
			{OutboxRowName: "row-1", ChannelID: "tok1"},
			{OutboxRowName: "row-2", ChannelID: ""},
			{OutboxRowName: "row-3", ChannelID: "tok3"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RecipientStatusSuccess, updater.updates["OTB-1"]["row-1"])
	assert.Equal(t, domain.RecipientStatusFailed, updater.updates["OTB-1"]["row-2"])
	assert.Equal(t, domain.RecipientStatusSuccess, updater.updates["OTB-1"]["row-3"])
}

func TestMockHandlerFailList(t *testing.T) {
	updater := newRecordingUpdater()
	h := NewMockHandler(updater)
	h.FailChannelIDs = map[string]bool{"bad": true}

	err := h.Invoke(context.Background(), domain.HandlerParams{
		Outbox:        "OTB-1",
		OutboxRowName: "row-1",
		ChannelID:     "bad",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecipientStatusFailed, updater.updates["OTB-1"]["row-1"])
	assert.Len(t, h.Invocations(), 1)
}
