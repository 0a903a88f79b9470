// Package http 出箱服务的 HTTP 接口层。
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/notificationhub/internal/outbox/application"
	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

type Handler struct {
	svc *application.OutboxService
}

func NewHandler(svc *application.OutboxService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1")
	g.POST("/outboxes", h.CreateOutbox)
	g.POST("/outboxes/send", h.Send)
	g.POST("/outboxes/:name/submit", h.SubmitOutbox)
	g.POST("/outboxes/:name/cancel", h.CancelOutbox)
	g.GET("/outboxes/:name", h.GetOutbox)
	g.GET("/outboxes/:name/status", h.GetOutboxStatus)
	g.GET("/outboxes", h.ListOutboxes)
	g.POST("/outboxes/:name/recipients/:row/seen", h.MarkSeen)
	g.GET("/channels", h.ListChannels)
	g.PUT("/channels/:name", h.SaveChannel)
	g.GET("/logs", h.ListRecipientLogs)
}

type createOutboxRequest struct {
	NotificationClient string                       `json:"notification_client" binding:"required"`
	Subject            string                       `json:"subject"`
	Content            string                       `json:"content"`
	Context            map[string]any               `json:"context"`
	Recipients         []application.RecipientInput `json:"recipients" binding:"required"`
}

func (r createOutboxRequest) toCommand() application.CreateOutboxCommand {
	return application.CreateOutboxCommand{
		NotificationClient: r.NotificationClient,
		Subject:            r.Subject,
		Content:            r.Content,
		Context:            r.Context,
		Recipients:         r.Recipients,
	}
}

func (h *Handler) CreateOutbox(c *gin.Context) {
	var req createOutboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, err := h.svc.CreateOutbox(c.Request.Context(), req.toCommand())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"outbox": name})
}

func (h *Handler) Send(c *gin.Context) {
	var req createOutboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, err := h.svc.Send(c.Request.Context(), application.SendCommand{CreateOutboxCommand: req.toCommand()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"outbox": name})
}

func (h *Handler) SubmitOutbox(c *gin.Context) {
	if err := h.svc.SubmitOutbox(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outbox": c.Param("name"), "submitted": true})
}

func (h *Handler) CancelOutbox(c *gin.Context) {
	if err := h.svc.CancelOutbox(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outbox": c.Param("name"), "cancelled": true})
}

func (h *Handler) GetOutbox(c *gin.Context) {
	outbox, err := h.svc.GetOutbox(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outbox)
}

func (h *Handler) GetOutboxStatus(c *gin.Context) {
	status, err := h.svc.GetOutboxStatus(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) ListOutboxes(c *gin.Context) {
	client := c.Query("client")
	if client == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client is required"})
		return
	}
	var page struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outboxes, total, err := h.svc.ListOutboxes(c.Request.Context(), client, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "outboxes": outboxes})
}

func (h *Handler) MarkSeen(c *gin.Context) {
	user := c.Query("user_identifier")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_identifier is required"})
		return
	}
	if err := h.svc.MarkSeen(c.Request.Context(), c.Param("name"), c.Param("row"), user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seen": true})
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type saveChannelRequest struct {
	Title           string `json:"title"`
	Enabled         *bool  `json:"enabled"`
	SenderType      string `json:"sender_type"`
	DefaultSender   string `json:"default_sender"`
	BatchRecipients bool   `json:"batch_recipients"`
	BatchSize       int    `json:"batch_size"`
}

func (h *Handler) SaveChannel(c *gin.Context) {
	var req saveChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	ch := &domain.NotificationChannel{
		Name:            c.Param("name"),
		Title:           req.Title,
		Enabled:         enabled,
		SenderType:      req.SenderType,
		DefaultSender:   req.DefaultSender,
		BatchRecipients: req.BatchRecipients,
		BatchSize:       req.BatchSize,
	}
	if err := h.svc.SaveChannel(c.Request.Context(), ch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) ListRecipientLogs(c *gin.Context) {
	client := c.Query("client")
	user := c.Query("user_identifier")
	if client == "" || user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client and user_identifier are required"})
		return
	}
	var page struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logs, total, err := h.svc.ListRecipientLogs(c.Request.Context(), client, user, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "logs": logs})
}

// respondError 将领域错误映射为带稳定错误码的 HTTP 响应
func respondError(c *gin.Context, err error) {
	var recipientErrs *domain.RecipientErrors
	if errors.As(err, &recipientErrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error_code":       domain.ErrCodeRecipientErrors,
			"recipient_errors": recipientErrs.Errors,
		})
		return
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusUnprocessableEntity
		switch domainErr.Code {
		case domain.ErrCodeOutboxNotFound:
			status = http.StatusNotFound
		case domain.ErrCodeInvalidDocStatus:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error_code": domainErr.Code,
			"message":    domainErr.Message,
			"data":       domainErr.Data,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error_code": domain.ErrCodeUnknown,
		"error":      err.Error(),
	})
}
