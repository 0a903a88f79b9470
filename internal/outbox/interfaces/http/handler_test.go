package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

func respond(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondErrorOutboxNotFound(t *testing.T) {
	w := respond(t, domain.NewOutboxNotFoundError("OTB-404"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrCodeOutboxNotFound, body["error_code"])
}

func TestRespondErrorInvalidDocStatus(t *testing.T) {
	w := respond(t, domain.NewInvalidDocStatusError("OTB-1", domain.DocStatusSubmitted, domain.DocStatusDraft))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRespondErrorChannelErrors(t *testing.T) {
	for _, err := range []error{
		domain.NewChannelNotFoundError("x"),
		domain.NewChannelDisabledError("x"),
		domain.NewHandlerNotFoundError("x"),
	} {
		w := respond(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	}
}

func TestRespondErrorRecipientErrors(t *testing.T) {
	w := respond(t, &domain.RecipientErrors{Errors: []domain.RecipientError{
		{Code: domain.ErrCodeChannelNotFound, Channel: "sms", ChannelID: "+861380"},
		{Code: domain.ErrCodeUnknown, Channel: "email", ChannelID: "a@b.c"},
	}})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		ErrorCode       string                  `json:"error_code"`
		RecipientErrors []domain.RecipientError `json:"recipient_errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrCodeRecipientErrors, body.ErrorCode)
	assert.Len(t, body.RecipientErrors, 2)
}

func TestRespondErrorUnknownFallsBackTo500(t *testing.T) {
	w := respond(t, errors.New("database gone"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrCodeUnknown, body["error_code"])
}
