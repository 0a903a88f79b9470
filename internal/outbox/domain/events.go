package domain

import "time"

// 事件主题
const (
	OutboxSubmittedEventType     = "notification.outbox.submitted"
	OutboxStatusChangedEventType = "notification.outbox.status_changed"
)

// OutboxSubmittedEvent 出箱提交事件，校验通过、调度已排队后发布
type OutboxSubmittedEvent struct {
	Outbox             string    `json:"outbox"`
	NotificationClient string    `json:"notification_client"`
	RecipientCount     int       `json:"recipient_count"`
	OccurredOn         time.Time `json:"occurred_on"`
}

// OutboxStatusChangedEvent 出箱聚合状态变更事件，由状态聚合器发布
type OutboxStatusChangedEvent struct {
	Outbox             string       `json:"outbox"`
	NotificationClient string       `json:"notification_client"`
	Status             OutboxStatus `json:"status"`
	ChangedRows        []string     `json:"changed_rows"`
	OccurredOn         time.Time    `json:"occurred_on"`
}

// EventPublisher 出箱领域事件发布接口
type EventPublisher interface {
	// PublishOutboxSubmitted 发布出箱提交事件
	PublishOutboxSubmitted(event OutboxSubmittedEvent) error

	// PublishOutboxStatusChanged 发布出箱状态变更事件
	PublishOutboxStatusChanged(event OutboxStatusChangedEvent) error
}
