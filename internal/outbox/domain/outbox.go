// Package domain 通知出箱（Notification Outbox）调度引擎的领域模型
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxStatus 出箱整体状态，由各收件人状态聚合推导，不允许直接设置
type OutboxStatus string

const (
	OutboxStatusPending        OutboxStatus = "PENDING"
	OutboxStatusSuccess        OutboxStatus = "SUCCESS"
	OutboxStatusFailed         OutboxStatus = "FAILED"
	OutboxStatusPartialSuccess OutboxStatus = "PARTIAL_SUCCESS"
)

// RecipientStatus 单个收件人的投递状态
type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "PENDING"
	RecipientStatusSuccess RecipientStatus = "SUCCESS"
	RecipientStatusFailed  RecipientStatus = "FAILED"
)

// DocStatus 出箱文档状态机：草稿可自由编辑，提交触发调度，取消后冻结
type DocStatus int8

const (
	DocStatusDraft DocStatus = iota
	DocStatusSubmitted
	DocStatusCancelled
)

// NotificationOutbox 出箱聚合根，持有一次逻辑发送的全部收件人
type NotificationOutbox struct {
	gorm.Model
	// Name 出箱唯一标识
	Name string `gorm:"column:name;type:varchar(32);uniqueIndex;not null" json:"name"`
	// NotificationClient 所属租户
	NotificationClient string `gorm:"column:notification_client;type:varchar(64);index;not null" json:"notification_client"`
	// Subject 已渲染的主题
	Subject string `gorm:"column:subject;type:varchar(200)" json:"subject"`
	// Content 已渲染的正文
	Content string `gorm:"column:content;type:text" json:"content"`
	// Status 聚合状态，仅由状态聚合器更新
	Status OutboxStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// DocStatus 文档状态：0 草稿 / 1 已提交 / 2 已取消
	DocStatus DocStatus `gorm:"column:doc_status;type:tinyint;index;not null;default:0" json:"doc_status"`
	// Recipients 收件人子表，提交后除状态字段外不可变
	Recipients []RecipientItem `gorm:"foreignKey:OutboxID;references:ID" json:"recipients"`
}

// TableName 指定表名
func (NotificationOutbox) TableName() string {
	return "notification_outboxes"
}

// RecipientItem 出箱收件人子行，每个 (channel, channel_id) 投递目标一行
type RecipientItem struct {
	gorm.Model
	OutboxID uint `gorm:"column:outbox_id;index;not null" json:"-"`
	// Name 行唯一标识，状态回调以此为键
	Name string `gorm:"column:name;type:varchar(32);uniqueIndex;not null" json:"name"`
	// Channel 投递渠道名称
	Channel string `gorm:"column:channel;type:varchar(64);not null" json:"channel"`
	// ChannelID 渠道内地址，如手机号、邮箱、设备 token
	ChannelID string `gorm:"column:channel_id;type:varchar(200);not null" json:"channel_id"`
	// UserIdentifier 跨渠道稳定的逻辑用户标识，可为空
	UserIdentifier string `gorm:"column:user_identifier;type:varchar(100);index" json:"user_identifier"`
	// ChannelArgs 渠道级覆盖参数，JSON 编码
	ChannelArgs datatypes.JSON `gorm:"column:channel_args" json:"channel_args"`
	// SenderType 发送方类型，如 Email Account
	SenderType string `gorm:"column:sender_type;type:varchar(64)" json:"sender_type"`
	// Sender 发送方标识
	Sender string `gorm:"column:sender;type:varchar(100)" json:"sender"`
	// Status 投递状态，仅 Pending -> Success/Failed 单向迁移
	Status RecipientStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// TimeSent 状态变为 Success 的时刻
	TimeSent *time.Time `gorm:"column:time_sent;type:datetime" json:"time_sent"`
	// Seen 已读回执，与投递状态相互独立
	Seen bool `gorm:"column:seen;not null;default:false" json:"seen"`
}

// TableName 指定表名
func (RecipientItem) TableName() string {
	return "notification_outbox_recipients"
}

// BeforeSubmit 提交前将所有状态重置为 Pending，保证重复处理过的草稿也能干净地调度
func (o *NotificationOutbox) BeforeSubmit() {
	o.Status = OutboxStatusPending
	for i := range o.Recipients {
		o.Recipients[i].Status = RecipientStatusPending
		o.Recipients[i].TimeSent = nil
	}
}

// Submit 草稿 -> 已提交，调度仅由该迁移触发一次
func (o *NotificationOutbox) Submit() error {
	if o.DocStatus != DocStatusDraft {
		return NewInvalidDocStatusError(o.Name, o.DocStatus, DocStatusDraft)
	}
	o.DocStatus = DocStatusSubmitted
	return nil
}

// Cancel 已提交 -> 已取消，取消后文档冻结
func (o *NotificationOutbox) Cancel() error {
	if o.DocStatus != DocStatusSubmitted {
		return NewInvalidDocStatusError(o.Name, o.DocStatus, DocStatusSubmitted)
	}
	o.DocStatus = DocStatusCancelled
	return nil
}

// Recipient 按行标识查找收件人
func (o *NotificationOutbox) Recipient(rowName string) *RecipientItem {
	for i := range o.Recipients {
		if o.Recipients[i].Name == rowName {
			return &o.Recipients[i]
		}
	}
	return nil
}

// ApplyRecipientStatuses 应用一批收件人状态更新并重新推导聚合状态。
// 未知行忽略；状态相同跳过；首次变为 Success 时写入 time_sent。
// 返回实际发生变更的行标识，调用方以此做写入规避。
func (o *NotificationOutbox) ApplyRecipientStatuses(updates map[string]RecipientStatus, now time.Time) []string {
	var changed []string
	for i := range o.Recipients {
		r := &o.Recipients[i]
		next, ok := updates[r.Name]
		if !ok || r.Status == next {
			continue
		}
		r.Status = next
		if next == RecipientStatusSuccess {
			t := now
			r.TimeSent = &t
		}
		changed = append(changed, r.Name)
	}
	if len(changed) > 0 {
		o.Status = o.deriveStatus()
	}
	return changed
}

// deriveStatus 聚合状态推导：任一 Pending 则 Pending；全部同一终态取该终态；否则 PartialSuccess
func (o *NotificationOutbox) deriveStatus() OutboxStatus {
	statuses := make(map[RecipientStatus]struct{}, 3)
	for i := range o.Recipients {
		statuses[o.Recipients[i].Status] = struct{}{}
	}
	if len(statuses) == 0 {
		return OutboxStatusPending
	}
	if _, ok := statuses[RecipientStatusPending]; ok {
		return OutboxStatusPending
	}
	if len(statuses) == 1 {
		for s := range statuses {
			return OutboxStatus(s)
		}
	}
	return OutboxStatusPartialSuccess
}
