package application

import (
	"context"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// OutboxQueryService 处理出箱相关的查询操作
type OutboxQueryService struct {
	repo        domain.OutboxRepository
	channels    domain.ChannelRepository
	statusCache domain.OutboxStatusCache
}

// NewOutboxQueryService 创建查询服务实例，statusCache 可为 nil
func NewOutboxQueryService(repo domain.OutboxRepository, channels domain.ChannelRepository, statusCache domain.OutboxStatusCache) *OutboxQueryService {
	return &OutboxQueryService{repo: repo, channels: channels, statusCache: statusCache}
}

// GetOutbox 按标识查询出箱详情
func (s *OutboxQueryService) GetOutbox(ctx context.Context, name string) (*domain.NotificationOutbox, error) {
	outbox, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if outbox == nil {
		return nil, domain.NewOutboxNotFoundError(name)
	}
	return outbox, nil
}

// GetOutboxStatus 查询聚合状态，优先走缓存，未命中时回源并回填
func (s *OutboxQueryService) GetOutboxStatus(ctx context.Context, name string) (*OutboxStatusDTO, error) {
	if s.statusCache != nil {
		status, ok, err := s.statusCache.Get(ctx, name)
		if err != nil {
			logging.Error(ctx, "status cache lookup failed, falling back to store", "outbox", name, "error", err)
		} else if ok {
			return &OutboxStatusDTO{Outbox: name, Status: string(status)}, nil
		}
	}

	outbox, err := s.GetOutbox(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.statusCache != nil {
		_ = s.statusCache.Set(ctx, name, outbox.Status)
	}
	return &OutboxStatusDTO{Outbox: name, Status: string(outbox.Status)}, nil
}

// ListOutboxes 分页列出租户的出箱
func (s *OutboxQueryService) ListOutboxes(ctx context.Context, client string, limit, offset int) ([]*domain.NotificationOutbox, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByClient(ctx, client, limit, offset)
}

// ListChannels 列出全部渠道配置
func (s *OutboxQueryService) ListChannels(ctx context.Context) ([]*domain.NotificationChannel, error) {
	return s.channels.List(ctx)
}

// ListRecipientLogs 列出某逻辑用户在租户下的通知日志
func (s *OutboxQueryService) ListRecipientLogs(ctx context.Context, client, userIdentifier string, limit, offset int) ([]*RecipientLogDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := s.repo.ListRecipientLogs(ctx, client, userIdentifier, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	logs := make([]*RecipientLogDTO, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, &RecipientLogDTO{
			RowName:   r.Name,
			Channel:   r.Channel,
			ChannelID: r.ChannelID,
			Status:    string(r.Status),
			TimeSent:  r.TimeSent,
			Seen:      r.Seen,
		})
	}
	return logs, total, nil
}
