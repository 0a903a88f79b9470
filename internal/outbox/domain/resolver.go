package domain

import "context"

// resolution 缓存条目：处理器或解析错误二选一
type resolution struct {
	handler ChannelHandler
	err     error
}

// ChannelResolver 渠道解析器，为单次调度运行缓存解析结果。
// 解析顺序：渠道存在性 -> 启用状态 -> 处理器注册表查找。
// 实例仅在一次调度内使用，不跨出箱共享，也不做并发保护。
type ChannelResolver struct {
	channels ChannelRepository
	handlers HandlerRegistry
	cache    map[string]resolution
}

// NewChannelResolver 创建单次调度运行的解析器
func NewChannelResolver(channels ChannelRepository, handlers HandlerRegistry) *ChannelResolver {
	return &ChannelResolver{
		channels: channels,
		handlers: handlers,
		cache:    make(map[string]resolution),
	}
}

// Resolve 解析渠道处理器，配置类失败返回携带错误码的领域错误
func (r *ChannelResolver) Resolve(ctx context.Context, channel string) (ChannelHandler, error) {
	if res, ok := r.cache[channel]; ok {
		return res.handler, res.err
	}

	handler, err := r.resolve(ctx, channel)
	r.cache[channel] = resolution{handler: handler, err: err}
	return handler, err
}

func (r *ChannelResolver) resolve(ctx context.Context, channel string) (ChannelHandler, error) {
	ch, err := r.channels.Get(ctx, channel)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, NewChannelNotFoundError(channel)
	}
	if !ch.Enabled {
		return nil, NewChannelDisabledError(channel)
	}

	handler, ok := r.handlers.Lookup(channel)
	if !ok {
		return nil, NewHandlerNotFoundError(channel)
	}
	return handler, nil
}
