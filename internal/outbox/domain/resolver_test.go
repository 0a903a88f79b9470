package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannelRepo struct {
	channels map[string]*NotificationChannel
	getCalls int
}

func (f *fakeChannelRepo) Get(_ context.Context, name string) (*NotificationChannel, error) {
	f.getCalls++
	return f.channels[name], nil
}

func (f *fakeChannelRepo) List(_ context.Context) ([]*NotificationChannel, error) {
	out := make([]*NotificationChannel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (f *fakeChannelRepo) BatchConfig(_ context.Context) (BatchConfig, error) {
	cfg := make(BatchConfig)
	for _, ch := range f.channels {
		if ch.BatchRecipients {
			cfg[ch.Name] = ch.EffectiveBatchSize()
		}
	}
	return cfg, nil
}

func (f *fakeChannelRepo) Upsert(_ context.Context, ch *NotificationChannel) error {
	f.channels[ch.Name] = ch
	return nil
}

type fakeRegistry map[string]ChannelHandler

func (f fakeRegistry) Lookup(channel string) (ChannelHandler, bool) {
	h, ok := f[channel]
	return h, ok
}

func noopHandler() ChannelHandler {
	return ChannelHandlerFunc(func(context.Context, HandlerParams) error { return nil })
}

func TestResolveErrorPrecedence(t *testing.T) {
	repo := &fakeChannelRepo{channels: map[string]*NotificationChannel{
		"disabled": {Name: "disabled", Enabled: false},
		"orphan":   {Name: "orphan", Enabled: true},
		"email":    {Name: "email", Enabled: true},
	}}
	registry := fakeRegistry{
		"email": noopHandler(),
		// disabled 渠道也有处理器，但停用优先于处理器查找
		"disabled": noopHandler(),
	}
	r := NewChannelResolver(repo, registry)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, &DomainError{Code: ErrCodeChannelNotFound})

	_, err = r.Resolve(ctx, "disabled")
	assert.ErrorIs(t, err, &DomainError{Code: ErrCodeChannelDisabled})

	_, err = r.Resolve(ctx, "orphan")
	assert.ErrorIs(t, err, &DomainError{Code: ErrCodeHandlerNotFound})

	h, err := r.Resolve(ctx, "email")
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestResolveCachesPerRun(t *testing.T) {
	repo := &fakeChannelRepo{channels: map[string]*NotificationChannel{
		"email": {Name: "email", Enabled: true},
	}}
	r := NewChannelResolver(repo, fakeRegistry{"email": noopHandler()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "email")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.getCalls)

	// 失败结果同样缓存
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "missing")
		require.Error(t, err)
	}
	assert.Equal(t, 2, repo.getCalls)
}
