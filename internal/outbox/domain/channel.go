package domain

import "gorm.io/gorm"

// DefaultBatchSize 渠道未配置批次上限时的默认值
const DefaultBatchSize = 5

// NotificationChannel 投递渠道配置实体
type NotificationChannel struct {
	gorm.Model
	// Name 渠道名称，处理器注册表以此为键
	Name string `gorm:"column:name;type:varchar(64);uniqueIndex;not null" json:"name"`
	// Title 展示名
	Title string `gorm:"column:title;type:varchar(100)" json:"title"`
	// Enabled 渠道开关，停用后解析返回 ChannelDisabled
	Enabled bool `gorm:"column:enabled;not null;default:true" json:"enabled"`
	// SenderType 默认发送方类型
	SenderType string `gorm:"column:sender_type;type:varchar(64)" json:"sender_type"`
	// DefaultSender 默认发送方，收件人未指定时回填
	DefaultSender string `gorm:"column:default_sender;type:varchar(100)" json:"default_sender"`
	// BatchRecipients 是否支持批量投递
	BatchRecipients bool `gorm:"column:batch_recipients;not null;default:false" json:"batch_recipients"`
	// BatchSize 单批收件人上限，0 表示使用默认值
	BatchSize int `gorm:"column:batch_size;not null;default:0" json:"batch_size"`
}

// TableName 指定表名
func (NotificationChannel) TableName() string {
	return "notification_channels"
}

// EffectiveBatchSize 返回生效的批次上限
func (c *NotificationChannel) EffectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}
