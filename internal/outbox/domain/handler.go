package domain

import (
	"context"
	"encoding/json"
)

// HandlerParams 渠道处理器调用参数。
// 单发模式填充 ChannelID/UserIdentifier/OutboxRowName，批量模式填充 Recipients。
type HandlerParams struct {
	Channel     string         `json:"channel"`
	ChannelArgs map[string]any `json:"channel_args,omitempty"`
	Sender      string         `json:"sender,omitempty"`
	SenderType  string         `json:"sender_type,omitempty"`
	Subject     string         `json:"subject"`
	Content     string         `json:"content"`
	// Outbox 所属出箱标识，处理器回报状态时使用
	Outbox string `json:"outbox"`
	// ToValidate 为 true 时仅校验收件人参数，不产生任何副作用
	ToValidate bool `json:"to_validate"`

	ChannelID      string `json:"channel_id,omitempty"`
	UserIdentifier string `json:"user_identifier,omitempty"`
	OutboxRowName  string `json:"outbox_row_name,omitempty"`

	Recipients []BatchRecipientItem `json:"recipients,omitempty"`
}

// IsBatch 是否为批量调用
func (p HandlerParams) IsBatch() bool {
	return len(p.Recipients) > 0
}

// RowNames 本次调用覆盖的全部行标识
func (p HandlerParams) RowNames() []string {
	if !p.IsBatch() {
		return []string{p.OutboxRowName}
	}
	names := make([]string, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		names = append(names, r.OutboxRowName)
	}
	return names
}

// ChannelHandler 渠道投递处理器，由外部实现并注册。
// ToValidate 时校验失败返回错误且不得有副作用；
// 真实投递时无论成败都必须通过 StatusUpdater 回报每个收件人的终态。
type ChannelHandler interface {
	Invoke(ctx context.Context, params HandlerParams) error
}

// ChannelHandlerFunc 函数适配器
type ChannelHandlerFunc func(ctx context.Context, params HandlerParams) error

// Invoke 实现 ChannelHandler
func (f ChannelHandlerFunc) Invoke(ctx context.Context, params HandlerParams) error {
	return f(ctx, params)
}

// HandlerRegistry 渠道名 -> 处理器的注册表，进程启动时由配置装配
type HandlerRegistry interface {
	Lookup(channel string) (ChannelHandler, bool)
}

// StatusUpdater 状态聚合器入口，处理器投递后以此回报结果
type StatusUpdater interface {
	UpdateRecipientStatus(ctx context.Context, outboxName string, updates map[string]RecipientStatus) error
}

// DecodeChannelArgs 解析收件人行上的 JSON 覆盖参数，空值返回 nil
func DecodeChannelArgs(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
