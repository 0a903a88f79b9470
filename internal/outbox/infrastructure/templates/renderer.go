// Package templates 主题与正文的模板渲染实现。
package templates

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// renderer 基于 text/template 的渲染实现，未知字段直接报错而不是渲染空值
type renderer struct{}

// NewRenderer 创建模板渲染器
func NewRenderer() domain.TemplateRenderer {
	return &renderer{}
}

// Render 实现 domain.TemplateRenderer
func (r *renderer) Render(_ context.Context, tpl string, data map[string]any) (string, error) {
	t, err := template.New("notification").Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
