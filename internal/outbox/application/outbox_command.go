package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	"gorm.io/datatypes"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// OutboxCommandService 处理出箱相关的命令操作：创建、提交（校验 + 调度）、取消、状态聚合
type OutboxCommandService struct {
	repo        domain.OutboxRepository
	channels    domain.ChannelRepository
	handlers    domain.HandlerRegistry
	scheduler   domain.DispatchScheduler
	publisher   domain.EventPublisher
	statusCache domain.OutboxStatusCache
	renderer    domain.TemplateRenderer
}

// NewOutboxCommandService 创建命令服务实例。
// publisher、statusCache、renderer 均可为 nil（降级为不发事件/不缓存/不渲染）。
func NewOutboxCommandService(
	repo domain.OutboxRepository,
	channels domain.ChannelRepository,
	handlers domain.HandlerRegistry,
	scheduler domain.DispatchScheduler,
	publisher domain.EventPublisher,
	statusCache domain.OutboxStatusCache,
	renderer domain.TemplateRenderer,
) *OutboxCommandService {
	return &OutboxCommandService{
		repo:        repo,
		channels:    channels,
		handlers:    handlers,
		scheduler:   scheduler,
		publisher:   publisher,
		statusCache: statusCache,
		renderer:    renderer,
	}
}

// CreateOutbox 创建出箱草稿，回填渠道默认发送方
func (s *OutboxCommandService) CreateOutbox(ctx context.Context, cmd CreateOutboxCommand) (string, error) {
	if cmd.NotificationClient == "" {
		return "", errors.New("notification client is required")
	}
	if len(cmd.Recipients) == 0 {
		return "", errors.New("at least one recipient is required")
	}

	subject, content, err := s.renderContent(ctx, cmd)
	if err != nil {
		return "", err
	}

	outbox := &domain.NotificationOutbox{
		Name:               fmt.Sprintf("OTB-%d", idgen.GenID()),
		NotificationClient: cmd.NotificationClient,
		Subject:            subject,
		Content:            content,
		Status:             domain.OutboxStatusPending,
		DocStatus:          domain.DocStatusDraft,
	}

	for _, in := range cmd.Recipients {
		if in.Channel == "" || in.ChannelID == "" {
			return "", errors.New("recipient channel and channel_id are required")
		}

		row := domain.RecipientItem{
			Name:           fmt.Sprintf("OTBR-%d", idgen.GenID()),
			Channel:        in.Channel,
			ChannelID:      in.ChannelID,
			UserIdentifier: in.UserIdentifier,
			SenderType:     in.SenderType,
			Sender:         in.Sender,
			Status:         domain.RecipientStatusPending,
		}
		if len(in.ChannelArgs) > 0 {
			raw, err := json.Marshal(in.ChannelArgs)
			if err != nil {
				return "", fmt.Errorf("failed to encode channel_args: %w", err)
			}
			row.ChannelArgs = datatypes.JSON(raw)
		}
		if err := s.fillDefaultSender(ctx, &row); err != nil {
			return "", err
		}
		outbox.Recipients = append(outbox.Recipients, row)
	}

	if err := s.repo.Save(ctx, outbox); err != nil {
		return "", err
	}
	return outbox.Name, nil
}

// fillDefaultSender 收件人未指定发送方时回填渠道默认值
func (s *OutboxCommandService) fillDefaultSender(ctx context.Context, row *domain.RecipientItem) error {
	if row.Sender != "" {
		return nil
	}
	ch, err := s.channels.Get(ctx, row.Channel)
	if err != nil {
		return err
	}
	if ch == nil {
		// 渠道不存在留给提交时的校验阶段报告
		return nil
	}
	row.Sender = ch.DefaultSender
	if row.SenderType == "" {
		row.SenderType = ch.SenderType
	}
	return nil
}

// SubmitOutbox 草稿 -> 已提交：先逐收件人校验（全量收集失败，任一失败则整体放弃），
// 校验通过后持久化提交态并异步调度全部批次。调度本身即发即忘。
func (s *OutboxCommandService) SubmitOutbox(ctx context.Context, name string) error {
	outbox, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if outbox == nil {
		return domain.NewOutboxNotFoundError(name)
	}
	if outbox.DocStatus != domain.DocStatusDraft {
		return domain.NewInvalidDocStatusError(name, outbox.DocStatus, domain.DocStatusDraft)
	}

	outbox.BeforeSubmit()

	// 解析缓存仅存活于本次调度运行
	resolver := domain.NewChannelResolver(s.channels, s.handlers)

	if err := s.validateRecipients(ctx, outbox, resolver); err != nil {
		return err
	}

	if err := outbox.Submit(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, outbox); err != nil {
		return err
	}

	s.dispatchPending(ctx, outbox, resolver)

	if s.publisher != nil {
		event := domain.OutboxSubmittedEvent{
			Outbox:             outbox.Name,
			NotificationClient: outbox.NotificationClient,
			RecipientCount:     len(outbox.Recipients),
			OccurredOn:         time.Now(),
		}
		if err := s.publisher.PublishOutboxSubmitted(event); err != nil {
			logging.Error(ctx, "failed to publish outbox submitted event", "outbox", outbox.Name, "error", err)
		}
	}
	if s.statusCache != nil {
		_ = s.statusCache.Set(ctx, outbox.Name, outbox.Status)
	}
	return nil
}

// Send 创建并立即提交
func (s *OutboxCommandService) Send(ctx context.Context, cmd SendCommand) (string, error) {
	name, err := s.CreateOutbox(ctx, cmd.CreateOutboxCommand)
	if err != nil {
		return "", err
	}
	if err := s.SubmitOutbox(ctx, name); err != nil {
		return name, err
	}
	return name, nil
}

// CancelOutbox 已提交 -> 已取消，之后的迟到回调全部被聚合器忽略
func (s *OutboxCommandService) CancelOutbox(ctx context.Context, name string) error {
	outbox, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if outbox == nil {
		return domain.NewOutboxNotFoundError(name)
	}
	if err := outbox.Cancel(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, outbox); err != nil {
		return err
	}
	if s.statusCache != nil {
		_ = s.statusCache.Delete(ctx, name)
	}
	return nil
}

// MarkSeen 标记通知日志已读
func (s *OutboxCommandService) MarkSeen(ctx context.Context, name, rowName, userIdentifier string) error {
	return s.repo.MarkSeen(ctx, name, rowName, userIdentifier)
}

// SaveChannel 创建或更新渠道配置
func (s *OutboxCommandService) SaveChannel(ctx context.Context, ch *domain.NotificationChannel) error {
	if ch.Name == "" {
		return errors.New("channel name is required")
	}
	return s.channels.Upsert(ctx, ch)
}

// UpdateRecipientStatus 状态聚合器入口：合并一批收件人状态更新并重新推导聚合状态。
// 非提交态文档、未知行、相同状态均为静默跳过；无任何实际变更时不触碰持久层。
func (s *OutboxCommandService) UpdateRecipientStatus(ctx context.Context, outboxName string, updates map[string]domain.RecipientStatus) error {
	var (
		changed []string
		status  domain.OutboxStatus
		client  string
	)
	err := s.repo.UpdateStatuses(ctx, outboxName, func(outbox *domain.NotificationOutbox) ([]string, error) {
		if outbox.DocStatus != domain.DocStatusSubmitted {
			return nil, nil
		}
		rows := outbox.ApplyRecipientStatuses(updates, time.Now())
		changed = rows
		status = outbox.Status
		client = outbox.NotificationClient
		return rows, nil
	})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	if s.statusCache != nil {
		_ = s.statusCache.Set(ctx, outboxName, status)
	}
	if s.publisher != nil {
		event := domain.OutboxStatusChangedEvent{
			Outbox:             outboxName,
			NotificationClient: client,
			Status:             status,
			ChangedRows:        changed,
			OccurredOn:         time.Now(),
		}
		if err := s.publisher.PublishOutboxStatusChanged(event); err != nil {
			logging.Error(ctx, "failed to publish status changed event", "outbox", outboxName, "error", err)
		}
	}
	return nil
}

// validateRecipients 第一阶段处理器调用：逐收件人校验，收集全部失败后一次性返回。
// 任一失败意味着整个出箱不会发出任何消息。
func (s *OutboxCommandService) validateRecipients(ctx context.Context, outbox *domain.NotificationOutbox, resolver *domain.ChannelResolver) error {
	var recipientErrors []domain.RecipientError

	for i := range outbox.Recipients {
		params, err := buildRecipientParams(outbox, &outbox.Recipients[i])
		if err != nil {
			recipientErrors = append(recipientErrors, domain.NewRecipientError(params, err))
			continue
		}
		params.ToValidate = true

		handler, err := resolver.Resolve(ctx, params.Channel)
		if err != nil {
			recipientErrors = append(recipientErrors, domain.NewRecipientError(params, err))
			continue
		}

		if err := safeInvoke(ctx, handler, params); err != nil {
			recipientErrors = append(recipientErrors, domain.NewRecipientError(params, err))
		}
	}

	if len(recipientErrors) > 0 {
		return &domain.RecipientErrors{Errors: recipientErrors}
	}
	return nil
}

// dispatchPending 第二阶段：分批并异步排队处理器调用。
// 此阶段的解析失败不再中止流程，对应收件人直接标记 Failed。
func (s *OutboxCommandService) dispatchPending(ctx context.Context, outbox *domain.NotificationOutbox, resolver *domain.ChannelResolver) {
	cfg, err := s.channels.BatchConfig(ctx)
	if err != nil {
		logging.Error(ctx, "failed to load batch config, dispatching unbatched", "outbox", outbox.Name, "error", err)
		cfg = domain.BatchConfig{}
	}

	for _, item := range domain.BatchPendingRecipients(outbox.Recipients, cfg) {
		var params domain.HandlerParams
		if item.Batch != nil {
			params, err = buildBatchParams(outbox, item.Batch)
		} else {
			params, err = buildRecipientParams(outbox, item.Recipient)
		}
		if err != nil {
			// 校验阶段已解析过同样的参数，此处失败意味着两阶段之间状态被改动
			logging.Error(ctx, "failed to build handler params", "outbox", outbox.Name, "error", err)
			s.markFailed(ctx, outbox.Name, params.RowNames())
			continue
		}

		handler, err := resolver.Resolve(ctx, params.Channel)
		if err != nil {
			s.markFailed(ctx, outbox.Name, params.RowNames())
			continue
		}

		s.scheduler.Enqueue(ctx, s.deliveryJob(handler, params))
	}
}

// deliveryJob 包装一次异步投递。处理器自身负责回报每个收件人的终态；
// 调用返回错误或恐慌时兜底标记 Failed（聚合器幂等，重复回报无副作用）。
func (s *OutboxCommandService) deliveryJob(handler domain.ChannelHandler, params domain.HandlerParams) func(ctx context.Context) {
	return func(ctx context.Context) {
		if err := safeInvoke(ctx, handler, params); err != nil {
			logging.Error(ctx, "channel handler delivery failed",
				"outbox", params.Outbox,
				"channel", params.Channel,
				"error", err,
			)
			s.markFailed(ctx, params.Outbox, params.RowNames())
		}
	}
}

func (s *OutboxCommandService) markFailed(ctx context.Context, outboxName string, rows []string) {
	updates := make(map[string]domain.RecipientStatus, len(rows))
	for _, row := range rows {
		if row == "" {
			continue
		}
		updates[row] = domain.RecipientStatusFailed
	}
	if len(updates) == 0 {
		return
	}
	if err := s.UpdateRecipientStatus(ctx, outboxName, updates); err != nil {
		logging.Error(ctx, "failed to mark recipients failed", "outbox", outboxName, "error", err)
	}
}

// renderContent 提供了模板上下文且配置了渲染器时渲染主题与正文
func (s *OutboxCommandService) renderContent(ctx context.Context, cmd CreateOutboxCommand) (string, string, error) {
	subject, content := cmd.Subject, cmd.Content
	if s.renderer == nil || len(cmd.Context) == 0 {
		return subject, content, nil
	}

	rendered, err := s.renderer.Render(ctx, subject, cmd.Context)
	if err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	subject = rendered

	rendered, err = s.renderer.Render(ctx, content, cmd.Context)
	if err != nil {
		return "", "", fmt.Errorf("failed to render content: %w", err)
	}
	content = rendered

	return subject, content, nil
}

// safeInvoke 调用处理器并吸收恐慌：单个行为异常的处理器不能拖垮整个提交流程
func safeInvoke(ctx context.Context, handler domain.ChannelHandler, params domain.HandlerParams) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel handler panic: %v", r)
		}
	}()
	return handler.Invoke(ctx, params)
}

// buildRecipientParams 构造单收件人的处理器参数
func buildRecipientParams(outbox *domain.NotificationOutbox, r *domain.RecipientItem) (domain.HandlerParams, error) {
	args, err := domain.DecodeChannelArgs(r.ChannelArgs)
	params := domain.HandlerParams{
		Channel:        r.Channel,
		ChannelArgs:    args,
		Sender:         r.Sender,
		SenderType:     r.SenderType,
		Subject:        outbox.Subject,
		Content:        outbox.Content,
		Outbox:         outbox.Name,
		ChannelID:      r.ChannelID,
		UserIdentifier: r.UserIdentifier,
		OutboxRowName:  r.Name,
	}
	if err != nil {
		return params, fmt.Errorf("invalid channel_args: %w", err)
	}
	return params, nil
}

// buildBatchParams 构造批量调用的处理器参数
func buildBatchParams(outbox *domain.NotificationOutbox, b *domain.RecipientsBatch) (domain.HandlerParams, error) {
	args, err := domain.DecodeChannelArgs([]byte(b.ChannelArgs))
	params := domain.HandlerParams{
		Channel:     b.Channel,
		ChannelArgs: args,
		Sender:      b.Sender,
		SenderType:  b.SenderType,
		Subject:     outbox.Subject,
		Content:     outbox.Content,
		Outbox:      outbox.Name,
		Recipients:  b.Recipients,
	}
	if err != nil {
		return params, fmt.Errorf("invalid channel_args: %w", err)
	}
	return params, nil
}
