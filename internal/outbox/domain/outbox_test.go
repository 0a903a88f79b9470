package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubmittedOutbox(statuses ...RecipientStatus) *NotificationOutbox {
	o := &NotificationOutbox{
		Name:      "OTB-1",
		Status:    OutboxStatusPending,
		DocStatus: DocStatusSubmitted,
	}
	for i, s := range statuses {
		o.Recipients = append(o.Recipients, RecipientItem{
			Name:   "row-" + string(rune('a'+i)),
			Status: s,
		})
	}
	return o
}

func TestSubmitAndCancelTransitions(t *testing.T) {
	o := newSubmittedOutbox()
	o.DocStatus = DocStatusDraft

	require.NoError(t, o.Submit())
	assert.Equal(t, DocStatusSubmitted, o.DocStatus)

	err := o.Submit()
	require.Error(t, err)
	assert.ErrorIs(t, err, &DomainError{Code: ErrCodeInvalidDocStatus})

	require.NoError(t, o.Cancel())
	assert.Equal(t, DocStatusCancelled, o.DocStatus)
	assert.Error(t, o.Cancel())
}

func TestBeforeSubmitResetsStatuses(t *testing.T) {
	sent := time.Now()
	o := newSubmittedOutbox(RecipientStatusSuccess, RecipientStatusFailed)
	o.Status = OutboxStatusPartialSuccess
	o.Recipients[0].TimeSent = &sent

	o.BeforeSubmit()

	assert.Equal(t, OutboxStatusPending, o.Status)
	for _, r := range o.Recipients {
		assert.Equal(t, RecipientStatusPending, r.Status)
		assert.Nil(t, r.TimeSent)
	}
}

func TestApplyRecipientStatusesDerivation(t *testing.T) {
	tests := []struct {
		name    string
		initial []RecipientStatus
		updates map[string]RecipientStatus
		want    OutboxStatus
	}{
		{
			name:    "all success",
			initial: []RecipientStatus{RecipientStatusPending, RecipientStatusPending},
			updates: map[string]RecipientStatus{"row-a": RecipientStatusSuccess, "row-b": RecipientStatusSuccess},
			want:    OutboxStatusSuccess,
		},
		{
			name:    "all failed",
			initial: []RecipientStatus{RecipientStatusPending, RecipientStatusPending},
			updates: map[string]RecipientStatus{"row-a": RecipientStatusFailed, "row-b": RecipientStatusFailed},
			want:    OutboxStatusFailed,
		},
		{
			name:    "mixed terminal",
			initial: []RecipientStatus{RecipientStatusPending, RecipientStatusPending},
			updates: map[string]RecipientStatus{"row-a": RecipientStatusSuccess, "row-b": RecipientStatusFailed},
			want:    OutboxStatusPartialSuccess,
		},
		{
			name:    "any pending dominates",
			initial: []RecipientStatus{RecipientStatusPending, RecipientStatusPending, RecipientStatusPending},
			updates: map[string]RecipientStatus{"row-a": RecipientStatusSuccess, "row-b": RecipientStatusFailed},
			want:    OutboxStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newSubmittedOutbox(tt.initial...)
			o.ApplyRecipientStatuses(tt.updates, time.Now())
			assert.Equal(t, tt.want, o.Status)
		})
	}
}

func TestApplyRecipientStatusesIgnoresUnknownRows(t *testing.T) {
	o := newSubmittedOutbox(RecipientStatusPending)

	changed := o.ApplyRecipientStatuses(map[string]RecipientStatus{
		"no-such-row": RecipientStatusSuccess,
	}, time.Now())

	assert.Empty(t, changed)
	assert.Equal(t, OutboxStatusPending, o.Status)
	assert.Equal(t, RecipientStatusPending, o.Recipients[0].Status)
}

func TestApplyRecipientStatusesSkipsEqualStatus(t *testing.T) {
	o := newSubmittedOutbox(RecipientStatusSuccess)
	o.Status = OutboxStatusSuccess
	sent := time.Now().Add(-time.Hour)
	o.Recipients[0].TimeSent = &sent

	changed := o.ApplyRecipientStatuses(map[string]RecipientStatus{
		"row-a": RecipientStatusSuccess,
	}, time.Now())

	assert.Empty(t, changed)
	// 重复回报不刷新 time_sent
	assert.Equal(t, sent, *o.Recipients[0].TimeSent)
}

func TestApplyRecipientStatusesSetsTimeSentOnSuccess(t *testing.T) {
	o := newSubmittedOutbox(RecipientStatusPending, RecipientStatusPending)
	now := time.Now()

	changed := o.ApplyRecipientStatuses(map[string]RecipientStatus{
		"row-a": RecipientStatusSuccess,
		"row-b": RecipientStatusFailed,
	}, now)

	assert.ElementsMatch(t, []string{"row-a", "row-b"}, changed)
	require.NotNil(t, o.Recipients[0].TimeSent)
	assert.Equal(t, now, *o.Recipients[0].TimeSent)
	assert.Nil(t, o.Recipients[1].TimeSent)
}

func TestApplyRecipientStatusesConvergesAcrossCalls(t *testing.T) {
	o := newSubmittedOutbox(RecipientStatusPending, RecipientStatusPending)

	o.ApplyRecipientStatuses(map[string]RecipientStatus{"row-a": RecipientStatusSuccess}, time.Now())
	assert.Equal(t, OutboxStatusPending, o.Status)

	o.ApplyRecipientStatuses(map[string]RecipientStatus{"row-b": RecipientStatusFailed}, time.Now())
	assert.Equal(t, OutboxStatusPartialSuccess, o.Status)
}

func TestRecipientLookup(t *testing.T) {
	o := newSubmittedOutbox(RecipientStatusPending)

	require.NotNil(t, o.Recipient("row-a"))
	assert.Nil(t, o.Recipient("missing"))
}
