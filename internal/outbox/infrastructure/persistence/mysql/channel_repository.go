package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/pkg/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// channelRepositoryImpl 是 domain.ChannelRepository 接口的 GORM 实现。
type channelRepositoryImpl struct {
	db *gorm.DB
}

// NewChannelRepository 创建渠道仓储实例
func NewChannelRepository(db *gorm.DB) domain.ChannelRepository {
	return &channelRepositoryImpl{db: db}
}

// Get 实现 domain.ChannelRepository.Get
func (r *channelRepositoryImpl) Get(ctx context.Context, name string) (*domain.NotificationChannel, error) {
	var ch domain.NotificationChannel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logging.Error(ctx, "channel_repository.Get failed", "channel", name, "error", err)
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return &ch, nil
}

// List 实现 domain.ChannelRepository.List
func (r *channelRepositoryImpl) List(ctx context.Context) ([]*domain.NotificationChannel, error) {
	var channels []*domain.NotificationChannel
	if err := r.db.WithContext(ctx).Order("name asc").Find(&channels).Error; err != nil {
		logging.Error(ctx, "channel_repository.List failed", "error", err)
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// BatchConfig 实现 domain.ChannelRepository.BatchConfig
func (r *channelRepositoryImpl) BatchConfig(ctx context.Context) (domain.BatchConfig, error) {
	var channels []*domain.NotificationChannel
	err := r.db.WithContext(ctx).
		Where("batch_recipients = ?", true).
		Find(&channels).Error
	if err != nil {
		logging.Error(ctx, "channel_repository.BatchConfig failed", "error", err)
		return nil, fmt.Errorf("failed to load batch config: %w", err)
	}

	cfg := make(domain.BatchConfig, len(channels))
	for _, ch := range channels {
		cfg[ch.Name] = ch.EffectiveBatchSize()
	}
	return cfg, nil
}

// Upsert 按名称创建或更新渠道配置
func (r *channelRepositoryImpl) Upsert(ctx context.Context, ch *domain.NotificationChannel) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(ch).Error
	if err != nil {
		logging.Error(ctx, "channel_repository.Upsert failed", "channel", ch.Name, "error", err)
		return fmt.Errorf("failed to upsert channel: %w", err)
	}
	return nil
}
