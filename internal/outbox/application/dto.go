package application

import "time"

// RecipientInput 创建出箱时的单个投递目标
type RecipientInput struct {
	Channel        string         `json:"channel"`
	ChannelID      string         `json:"channel_id"`
	UserIdentifier string         `json:"user_identifier,omitempty"`
	ChannelArgs    map[string]any `json:"channel_args,omitempty"`
	SenderType     string         `json:"sender_type,omitempty"`
	Sender         string         `json:"sender,omitempty"`
}

// CreateOutboxCommand 创建出箱草稿命令。
// 模板与上下文二者可选：提供时由渲染协作方生成最终主题与正文。
type CreateOutboxCommand struct {
	NotificationClient string
	Subject            string
	Content            string
	Context            map[string]any
	Recipients         []RecipientInput
}

// SendCommand 创建并立即提交的组合命令
type SendCommand struct {
	CreateOutboxCommand
}

// OutboxStatusDTO 状态查询结果
type OutboxStatusDTO struct {
	Outbox string `json:"outbox"`
	Status string `json:"status"`
}

// RecipientLogDTO 通知日志行
type RecipientLogDTO struct {
	RowName   string     `json:"row_name"`
	Channel   string     `json:"channel"`
	ChannelID string     `json:"channel_id"`
	Status    string     `json:"status"`
	TimeSent  *time.Time `json:"time_sent,omitempty"`
	Seen      bool       `json:"seen"`
}
