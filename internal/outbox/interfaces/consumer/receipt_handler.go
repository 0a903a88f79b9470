// Package consumer 投递回执的 Kafka 消费端。
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// DeliveryReceiptTopic 外部网关回报投递结果的主题
const DeliveryReceiptTopic = "notification.delivery.receipts"

// deliveryReceipt 网关回执载荷：一批收件人行的终态
type deliveryReceipt struct {
	Outbox   string            `json:"outbox"`
	Statuses map[string]string `json:"statuses"`
}

// ReceiptHandler 消费投递回执并注入状态聚合器。
// 外部渠道网关（短信服务商、推送服务）的异步回调由此进入引擎。
type ReceiptHandler struct {
	statuses domain.StatusUpdater
	logger   *slog.Logger
}

// NewReceiptHandler 创建回执处理器
func NewReceiptHandler(statuses domain.StatusUpdater, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{statuses: statuses, logger: logger}
}

// Handle 处理一条回执消息。载荷损坏的消息记录后丢弃，避免毒丸阻塞分区。
func (h *ReceiptHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var receipt deliveryReceipt
	if err := json.Unmarshal(msg.Value, &receipt); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal delivery receipt",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if receipt.Outbox == "" || len(receipt.Statuses) == 0 {
		h.logger.WarnContext(ctx, "delivery receipt missing outbox or statuses",
			"topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	updates := make(map[string]domain.RecipientStatus, len(receipt.Statuses))
	for row, status := range receipt.Statuses {
		switch domain.RecipientStatus(status) {
		case domain.RecipientStatusSuccess, domain.RecipientStatusFailed:
			updates[row] = domain.RecipientStatus(status)
		default:
			h.logger.WarnContext(ctx, "ignoring unknown recipient status in receipt",
				"outbox", receipt.Outbox, "row", row, "status", status)
		}
	}
	if len(updates) == 0 {
		return nil
	}

	return h.statuses.UpdateRecipientStatus(ctx, receipt.Outbox, updates)
}
