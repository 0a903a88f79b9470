package handler

import (
	"context"
	"fmt"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// FCMHandler 推送渠道处理器，支持批量投递：一次调用覆盖同一
// (channel_args, sender) 组合下的一批设备 token，并逐行回报终态。
type FCMHandler struct {
	serverKey string
	statuses  domain.StatusUpdater
}

// NewFCMHandler 创建推送处理器
func NewFCMHandler(serverKey string, statuses domain.StatusUpdater) *FCMHandler {
	return &FCMHandler{serverKey: serverKey, statuses: statuses}
}

// Invoke 实现 domain.ChannelHandler
func (h *FCMHandler) Invoke(ctx context.Context, params domain.HandlerParams) error {
	if params.ToValidate {
		if params.ChannelID == "" {
			return fmt.Errorf("device token is required")
		}
		return nil
	}

	updates := make(map[string]domain.RecipientStatus)
	if params.IsBatch() {
		for _, r := range params.Recipients {
			updates[r.OutboxRowName] = h.push(ctx, params, r.ChannelID)
		}
	} else {
		updates[params.OutboxRowName] = h.push(ctx, params, params.ChannelID)
	}

	return h.statuses.UpdateRecipientStatus(ctx, params.Outbox, updates)
}

func (h *FCMHandler) push(ctx context.Context, params domain.HandlerParams, token string) domain.RecipientStatus {
	if token == "" {
		return domain.RecipientStatusFailed
	}
	logging.Info(ctx, "sending push notification",
		"outbox", params.Outbox,
		"token", token,
		"title", params.Subject,
	)
	return domain.RecipientStatusSuccess
}
