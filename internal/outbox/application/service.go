// Package application 通知出箱的应用服务层，按命令/查询拆分并由门面统一暴露
package application

import "github.com/wyfcoding/notificationhub/internal/outbox/domain"

// OutboxService 出箱应用服务门面，组合命令与查询服务
type OutboxService struct {
	*OutboxCommandService
	*OutboxQueryService
}

// NewOutboxService 创建出箱应用服务
func NewOutboxService(
	repo domain.OutboxRepository,
	channels domain.ChannelRepository,
	handlers domain.HandlerRegistry,
	scheduler domain.DispatchScheduler,
	publisher domain.EventPublisher,
	statusCache domain.OutboxStatusCache,
	renderer domain.TemplateRenderer,
) *OutboxService {
	return &OutboxService{
		OutboxCommandService: NewOutboxCommandService(repo, channels, handlers, scheduler, publisher, statusCache, renderer),
		OutboxQueryService:   NewOutboxQueryService(repo, channels, statusCache),
	}
}
