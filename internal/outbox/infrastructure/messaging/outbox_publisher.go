// Package messaging 基于事务性发件箱的出箱领域事件发布。
package messaging

import (
	"context"

	"github.com/wyfcoding/pkg/messagequeue/outbox"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// outboxPublisher 基于 Outbox 模式的事件发布者实现，
// 事件先落库，由后台 Processor 中继到消息队列
type outboxPublisher struct {
	manager *outbox.Manager
}

// NewOutboxPublisher 创建事件发布者实例
func NewOutboxPublisher(manager *outbox.Manager) domain.EventPublisher {
	return &outboxPublisher{manager: manager}
}

// PublishOutboxSubmitted 实现 domain.EventPublisher
func (p *outboxPublisher) PublishOutboxSubmitted(event domain.OutboxSubmittedEvent) error {
	return p.manager.PublishInTx(context.Background(), p.manager.DB(),
		domain.OutboxSubmittedEventType, event.Outbox, event)
}

// PublishOutboxStatusChanged 实现 domain.EventPublisher
func (p *outboxPublisher) PublishOutboxStatusChanged(event domain.OutboxStatusChangedEvent) error {
	return p.manager.PublishInTx(context.Background(), p.manager.DB(),
		domain.OutboxStatusChangedEventType, event.Outbox, event)
}
