// Package mysql 提供了出箱仓储接口的 MySQL GORM 实现。
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

// outboxRepositoryImpl 是 domain.OutboxRepository 接口的 GORM 实现。
type outboxRepositoryImpl struct {
	db *gorm.DB
}

// NewOutboxRepository 创建出箱仓储实例
func NewOutboxRepository(db *gorm.DB) domain.OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

// Save 实现 domain.OutboxRepository.Save
func (r *outboxRepositoryImpl) Save(ctx context.Context, outbox *domain.NotificationOutbox) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(outbox).Error
	if err != nil {
		logging.Error(ctx, "outbox_repository.Save failed", "outbox", outbox.Name, "error", err)
		return fmt.Errorf("failed to save outbox: %w", err)
	}
	return nil
}

// Get 实现 domain.OutboxRepository.Get
func (r *outboxRepositoryImpl) Get(ctx context.Context, name string) (*domain.NotificationOutbox, error) {
	var outbox domain.NotificationOutbox
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Preload("Recipients").
		First(&outbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logging.Error(ctx, "outbox_repository.Get failed", "outbox", name, "error", err)
		return nil, fmt.Errorf("failed to get outbox: %w", err)
	}
	return &outbox, nil
}

// ListByClient 实现 domain.OutboxRepository.ListByClient
func (r *outboxRepositoryImpl) ListByClient(ctx context.Context, client string, limit, offset int) ([]*domain.NotificationOutbox, int64, error) {
	var outboxes []*domain.NotificationOutbox
	var total int64
	db := r.db.WithContext(ctx).Model(&domain.NotificationOutbox{}).
		Where("notification_client = ?", client)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at desc").
		Limit(limit).Offset(offset).
		Preload("Recipients").
		Find(&outboxes).Error
	if err != nil {
		logging.Error(ctx, "outbox_repository.ListByClient failed", "client", client, "error", err)
		return nil, 0, fmt.Errorf("failed to list outboxes by client: %w", err)
	}
	return outboxes, total, nil
}

// ListRecipientLogs 实现 domain.OutboxRepository.ListRecipientLogs
func (r *outboxRepositoryImpl) ListRecipientLogs(ctx context.Context, client, userIdentifier string, limit, offset int) ([]*domain.RecipientItem, int64, error) {
	var rows []*domain.RecipientItem
	var total int64
	db := r.db.WithContext(ctx).Model(&domain.RecipientItem{}).
		Joins("JOIN notification_outboxes ON notification_outboxes.id = notification_outbox_recipients.outbox_id").
		Where("notification_outboxes.notification_client = ?", client).
		Where("notification_outboxes.doc_status = ?", domain.DocStatusSubmitted).
		Where("notification_outbox_recipients.user_identifier = ?", userIdentifier)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("notification_outbox_recipients.created_at desc").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		logging.Error(ctx, "outbox_repository.ListRecipientLogs failed", "client", client, "error", err)
		return nil, 0, fmt.Errorf("failed to list recipient logs: %w", err)
	}
	return rows, total, nil
}

// UpdateStatuses 实现 domain.OutboxRepository.UpdateStatuses。
// 行锁事务内重载出箱，apply 决定变更行集合，仅回写状态相关字段。
// 并发回调在此串行化，后到者基于前者的结果重新推导聚合状态。
func (r *outboxRepositoryImpl) UpdateStatuses(ctx context.Context, name string, apply func(outbox *domain.NotificationOutbox) ([]string, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var outbox domain.NotificationOutbox
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&outbox).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewOutboxNotFoundError(name)
			}
			return fmt.Errorf("failed to lock outbox: %w", err)
		}
		if err := tx.Where("outbox_id = ?", outbox.ID).Find(&outbox.Recipients).Error; err != nil {
			return fmt.Errorf("failed to load outbox recipients: %w", err)
		}

		changed, err := apply(&outbox)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}

		for _, rowName := range changed {
			row := outbox.Recipient(rowName)
			if row == nil {
				continue
			}
			err := tx.Model(&domain.RecipientItem{}).
				Where("name = ?", rowName).
				Updates(map[string]any{
					"status":    row.Status,
					"time_sent": row.TimeSent,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update recipient status: %w", err)
			}
		}

		err = tx.Model(&domain.NotificationOutbox{}).
			Where("name = ?", name).
			Update("status", outbox.Status).Error
		if err != nil {
			return fmt.Errorf("failed to update outbox status: %w", err)
		}
		return nil
	})
}

// MarkSeen 实现 domain.OutboxRepository.MarkSeen
func (r *outboxRepositoryImpl) MarkSeen(ctx context.Context, name, rowName, userIdentifier string) error {
	var outbox domain.NotificationOutbox
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&outbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewOutboxNotFoundError(name)
		}
		return fmt.Errorf("failed to get outbox: %w", err)
	}

	res := r.db.WithContext(ctx).Model(&domain.RecipientItem{}).
		Where("outbox_id = ? AND name = ? AND user_identifier = ?", outbox.ID, rowName, userIdentifier).
		Update("seen", true)
	if res.Error != nil {
		logging.Error(ctx, "outbox_repository.MarkSeen failed", "outbox", name, "row", rowName, "error", res.Error)
		return fmt.Errorf("failed to mark recipient seen: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipient row %s not found for user", rowName)
	}
	return nil
}
