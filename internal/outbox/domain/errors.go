package domain

import (
	"errors"
	"fmt"
	"strings"
)

// 错误码，对外接口与事件载荷中保持稳定
const (
	ErrCodeChannelNotFound  = "NOTIFICATION_CHANNEL_NOT_FOUND"
	ErrCodeChannelDisabled  = "NOTIFICATION_CHANNEL_DISABLED"
	ErrCodeHandlerNotFound  = "NOTIFICATION_CHANNEL_HANDLER_NOT_FOUND"
	ErrCodeRecipientErrors  = "NOTIFICATION_RECEIVER_ERRORS"
	ErrCodeInvalidDocStatus = "INVALID_DOC_STATUS"
	ErrCodeOutboxNotFound   = "NOTIFICATION_OUTBOX_NOT_FOUND"
	ErrCodeUnknown          = "UNKNOWN_ERROR"
)

// DomainError 携带机器可读错误码与结构化上下文的领域错误
type DomainError struct {
	Code    string         `json:"error_code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is 支持按错误码比较，便于 errors.Is 判定
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewChannelNotFoundError 渠道不存在
func NewChannelNotFoundError(channel string) *DomainError {
	return &DomainError{
		Code:    ErrCodeChannelNotFound,
		Message: "notification channel not found",
		Data:    map[string]any{"channel": channel},
	}
}

// NewChannelDisabledError 渠道存在但被管理端停用
func NewChannelDisabledError(channel string) *DomainError {
	return &DomainError{
		Code:    ErrCodeChannelDisabled,
		Message: "notification channel is disabled",
		Data:    map[string]any{"channel": channel},
	}
}

// NewHandlerNotFoundError 渠道启用但未注册投递处理器
func NewHandlerNotFoundError(channel string) *DomainError {
	return &DomainError{
		Code:    ErrCodeHandlerNotFound,
		Message: "notification channel handler not found",
		Data:    map[string]any{"channel": channel},
	}
}

// NewOutboxNotFoundError 出箱不存在
func NewOutboxNotFoundError(name string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOutboxNotFound,
		Message: "notification outbox not found",
		Data:    map[string]any{"outbox": name},
	}
}

// NewInvalidDocStatusError 文档状态迁移非法
func NewInvalidDocStatusError(name string, got, want DocStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidDocStatus,
		Message: "operation not allowed in current document state",
		Data:    map[string]any{"outbox": name, "doc_status": got, "expected": want},
	}
}

// RecipientError 单个收件人的校验失败项，附带触发时的处理器参数
type RecipientError struct {
	Code           string `json:"error_code"`
	Message        string `json:"message"`
	Channel        string `json:"channel"`
	ChannelID      string `json:"channel_id"`
	OutboxRowName  string `json:"outbox_row_name"`
	UserIdentifier string `json:"user_identifier,omitempty"`
}

// NewRecipientError 将任意处理器错误归一为收件人错误项。
// 领域错误保留自身错误码，未分类错误降级为 UNKNOWN_ERROR。
func NewRecipientError(params HandlerParams, err error) RecipientError {
	code := ErrCodeUnknown
	msg := err.Error()
	var de *DomainError
	if errors.As(err, &de) {
		code = de.Code
		msg = de.Message
	}
	return RecipientError{
		Code:           code,
		Message:        msg,
		Channel:        params.Channel,
		ChannelID:      params.ChannelID,
		OutboxRowName:  params.OutboxRowName,
		UserIdentifier: params.UserIdentifier,
	}
}

// RecipientErrors 聚合校验错误：validate_all 收集全部失败后一次性抛出
type RecipientErrors struct {
	Errors []RecipientError `json:"recipient_errors"`
}

func (e *RecipientErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s[%s]: %s", item.Channel, item.ChannelID, item.Code))
	}
	return fmt.Sprintf("%s: %s", ErrCodeRecipientErrors, strings.Join(parts, "; "))
}
