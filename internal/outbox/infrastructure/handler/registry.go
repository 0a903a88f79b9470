// Package handler 渠道处理器实现与注册表。
package handler

import (
	"sync"

	"github.com/wyfcoding/notificationhub/internal/outbox/domain"
)

// Registry 渠道名 -> 处理器注册表，进程启动时装配，运行期只读为主
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]domain.ChannelHandler
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]domain.ChannelHandler)}
}

// Register 注册渠道处理器，同名覆盖
func (r *Registry) Register(channel string, h domain.ChannelHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = h
}

// Lookup 实现 domain.HandlerRegistry
func (r *Registry) Lookup(channel string) (domain.ChannelHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[channel]
	return h, ok
}
