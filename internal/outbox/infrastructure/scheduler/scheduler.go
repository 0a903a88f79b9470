// Package scheduler 投递任务的异步调度实现。
package scheduler

import (
	"context"
	"sync"

	"github.com/wyfcoding/pkg/logging"
)

// WorkerPool 固定工作协程数的异步调度器。
// Enqueue 在队列满时阻塞而不是丢任务，停机时排干队列后退出；
// 停机后的 Enqueue 拒绝任务而不是向已关闭的队列写入。
type WorkerPool struct {
	mu      sync.RWMutex
	stopped bool
	jobs    chan func(ctx context.Context)
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWorkerPool 创建调度器，workers/queueSize 非法时取最小可用值
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &WorkerPool{
		jobs:    make(chan func(ctx context.Context), queueSize),
		workers: workers,
	}
}

// Start 启动工作协程，ctx 取消后不再接收新任务
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(ctx, job)
			}
		}()
	}
}

func (p *WorkerPool) run(ctx context.Context, job func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(ctx, "dispatch job panic", "panic", r)
		}
	}()
	job(ctx)
}

// Enqueue 实现 domain.DispatchScheduler
func (p *WorkerPool) Enqueue(ctx context.Context, job func(ctx context.Context)) {
	// 读锁与 Stop 的写锁互斥：队列满时阻塞的 Enqueue 持有读锁，
	// Stop 必须等它入队完成后才能关闭队列
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		logging.Error(ctx, "dispatch enqueue rejected, scheduler stopped")
		return
	}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		logging.Error(ctx, "dispatch enqueue abandoned", "error", ctx.Err())
	}
}

// Stop 关闭队列并等待在途任务完成
func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Synchronous 同步调度器，任务入队即执行。用于联调与测试，
// 也可在单机部署时换取确定性的提交语义。
type Synchronous struct{}

// NewSynchronous 创建同步调度器
func NewSynchronous() *Synchronous {
	return &Synchronous{}
}

// Enqueue 实现 domain.DispatchScheduler
func (s *Synchronous) Enqueue(ctx context.Context, job func(ctx context.Context)) {
	job(ctx)
}
