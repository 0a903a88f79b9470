package handler

import (
	"context"
	"sync"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// MockHandler 可配置的模拟处理器，用于本地联调与测试
type MockHandler struct {
	mu sync.Mutex
	// ValidateErr 校验阶段返回的错误
	ValidateErr error
	// DeliverErr 投递阶段返回的错误；此时不回报状态，由调用方兜底标记 Failed
	DeliverErr error
	// FailChannelIDs 指定投递失败的 channel_id
	FailChannelIDs map[string]bool

	statuses domain.StatusUpdater
	invoked  []domain.HandlerParams
}

// NewMockHandler 创建模拟处理器
func NewMockHandler(statuses domain.StatusUpdater) *MockHandler {
	return &MockHandler{statuses: statuses}
}

// Invoke 实现 domain.ChannelHandler
func (h *MockHandler) Invoke(ctx context.Context, params domain.HandlerParams) error {
	h.mu.Lock()
	h.invoked = append(h.invoked, params)
	h.mu.Unlock()

	if params.ToValidate {
		return h.ValidateErr
	}
	if h.DeliverErr != nil {
		return h.DeliverErr
	}

	updates := make(map[string]domain.RecipientStatus)
	if params.IsBatch() {
		for _, r := range params.Recipients {
			updates[r.OutboxRowName] = h.statusFor(r.ChannelID)
		}
	} else {
		updates[params.OutboxRowName] = h.statusFor(params.ChannelID)
	}
	return h.statuses.UpdateRecipientStatus(ctx, params.Outbox, updates)
}

func (h *MockHandler) statusFor(channelID string) domain.RecipientStatus {
	if h.FailChannelIDs[channelID] {
		return domain.RecipientStatusFailed
	}
	return domain.RecipientStatusSuccess
}

// Invocations 返回全部调用记录
func (h *MockHandler) Invocations() []domain.HandlerParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.HandlerParams, len(h.invoked))
	copy(out, h.invoked)
	return out
}
