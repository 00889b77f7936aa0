package sockets

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/hwcer/cosgo/logger"
	"github.com/hwcer/cosgo/scc"
	"github.com/hwcer/cosgo/utils"
)

// NewLoop 创建单线程执行上下文
func NewLoop(ctx context.Context) *Loop {
	if ctx == nil {
		ctx = context.Background()
	}
	l := &Loop{
		queue:  queue.New(),
		notify: make(chan struct{}, 1),
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.SCC = scc.New(l.ctx)
	return l
}

// Loop 所有连接状态修改和用户回调都在同一个协程中执行
//
//	IO协程只通过 Post 投递完成事件,不直接修改任何连接状态
type Loop struct {
	SCC    *scc.SCC
	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.Mutex
	queue  *queue.Queue
	notify chan struct{}
}

func (l *Loop) Context() context.Context {
	return l.ctx
}

// Go 启动IO协程,Close时等待其退出, panic 写入日志
func (l *Loop) Go(f func(ctx context.Context)) {
	l.SCC.SGO(func(ctx context.Context) {
		utils.Try(func() { f(ctx) }, catch("io goroutine"))
	})
}

// Stopped Loop 已经关闭
func (l *Loop) Stopped() bool {
	return l.ctx.Err() != nil
}

// Post 投递任务到执行上下文,任意协程安全
func (l *Loop) Post(f func()) {
	l.mutex.Lock()
	l.queue.Add(f)
	l.mutex.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Pending 尚未执行的任务数量
func (l *Loop) Pending() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.queue.Length()
}

// Poll 在当前协程执行已经投递的任务,执行过程中新投递的任务留到下一次
func (l *Loop) Poll() (n int) {
	l.mutex.Lock()
	size := l.queue.Length()
	l.mutex.Unlock()
	for ; n < size; n++ {
		l.mutex.Lock()
		f, _ := l.queue.Remove().(func())
		l.mutex.Unlock()
		l.call(f)
	}
	return
}

func (l *Loop) call(f func()) {
	if f != nil {
		utils.Try(f, catch("loop task"))
	}
}

func catch(name string) func(any) {
	return func(e any) {
		logger.Error("%v panic:%v\n%v", name, e, string(debug.Stack()))
	}
}

// Update 执行一帧: 处理投递的任务,然后依次调用 Update
func (l *Loop) Update(services ...Updater) {
	l.Poll()
	for _, s := range services {
		l.call(s.Update)
	}
}

// Run 阻塞运行直到 Close 或者 ctx 结束
//
//	有任务投递时立即执行,每隔 interval 执行一帧 Update
func (l *Loop) Run(interval time.Duration, services ...Updater) {
	l.RunContext(l.ctx, interval, services...)
}

// RunContext 同 Run, ctx 结束时返回但不关闭 Loop,之后仍然可以 Dispose 连接
func (l *Loop) RunContext(ctx context.Context, interval time.Duration, services ...Updater) {
	if interval <= 0 {
		interval = Options.UpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Poll()
			return
		case <-l.ctx.Done():
			l.Poll()
			return
		case <-l.notify:
			l.Poll()
		case <-ticker.C:
			l.Update(services...)
		}
	}
}

// Close 关闭执行上下文并等待IO协程退出
func (l *Loop) Close() error {
	l.cancel()
	if !l.SCC.Cancel() {
		return nil
	}
	return l.SCC.Wait(Options.CloseTimeout)
}
