package domain

import "context"

// OutboxRepository 出箱仓储接口
type OutboxRepository interface {
	// Save 保存出箱及收件人子表。常规写入路径，仅接受草稿态的内容变更；
	// 文档状态迁移（提交/取消）也经由此方法持久化。
	Save(ctx context.Context, outbox *NotificationOutbox) error

	// Get 按标识加载出箱（含收件人），不存在时返回 (nil, nil)
	Get(ctx context.Context, name string) (*NotificationOutbox, error)

	// ListByClient 分页列出租户的出箱
	ListByClient(ctx context.Context, client string, limit, offset int) ([]*NotificationOutbox, int64, error)

	// ListRecipientLogs 列出某逻辑用户在租户下的收件人行（通知日志）
	ListRecipientLogs(ctx context.Context, client, userIdentifier string, limit, offset int) ([]*RecipientItem, int64, error)

	// UpdateStatuses 提交后状态字段的唯一写入路径：在行锁事务内重载出箱、
	// 执行 apply 得到变更行集合，仅持久化这些行的状态字段与出箱聚合状态。
	// 绕过"已提交文档不可修改"的常规保护，属于刻意收窄的逃生通道，
	// 除状态聚合器外不得使用。apply 返回空集时不产生任何写入。
	UpdateStatuses(ctx context.Context, name string, apply func(outbox *NotificationOutbox) ([]string, error)) error

	// MarkSeen 标记某收件人行已读，只允许操作 userIdentifier 自己的行
	MarkSeen(ctx context.Context, name, rowName, userIdentifier string) error
}

// ChannelRepository 渠道配置仓储接口
type ChannelRepository interface {
	// Get 按名称获取渠道，不存在时返回 (nil, nil)
	Get(ctx context.Context, name string) (*NotificationChannel, error)

	// List 列出全部渠道
	List(ctx context.Context) ([]*NotificationChannel, error)

	// BatchConfig 返回启用批量投递的渠道及其单批上限
	BatchConfig(ctx context.Context) (BatchConfig, error)

	// Upsert 按名称创建或更新渠道配置
	Upsert(ctx context.Context, ch *NotificationChannel) error
}

// DispatchScheduler 异步调度接口：投递任务排队后立即返回，引擎从不等待处理器完成
type DispatchScheduler interface {
	Enqueue(ctx context.Context, job func(ctx context.Context))
}

// OutboxStatusCache 出箱聚合状态读模型缓存
type OutboxStatusCache interface {
	Set(ctx context.Context, name string, status OutboxStatus) error
	Get(ctx context.Context, name string) (OutboxStatus, bool, error)
	Delete(ctx context.Context, name string) error
}

// TemplateRenderer 模板渲染协作方：上游在构造出箱前渲染主题与正文
type TemplateRenderer interface {
	Render(ctx context.Context, tpl string, data map[string]any) (string, error)
}
