package sockets

import "github.com/hwcer/cosgo/utils"

func NewRegistry(loop *Loop, protocol NetworkProtocol) *Registry {
	return &Registry{
		loop:     loop,
		protocol: protocol,
		channels: make(map[uint64]Channel),
	}
}

// Registry Service 公共实现,持有全部连接
type Registry struct {
	loop     *Loop
	protocol NetworkProtocol
	channels map[uint64]Channel
	accepts  Listeners[AcceptFunc]
	disposed bool
}

func (this *Registry) registry() *Registry {
	return this
}

func (this *Registry) Protocol() NetworkProtocol {
	return this.protocol
}

func (this *Registry) Loop() *Loop {
	return this.loop
}

func (this *Registry) Size() int {
	return len(this.channels)
}

func (this *Registry) IsDisposed() bool {
	return this.disposed
}

// GetChannel 不存在时返回nil
func (this *Registry) GetChannel(id uint64) Channel {
	if c, ok := this.channels[id]; ok {
		return c
	}
	return nil
}

// Add 加入连接表
func (this *Registry) Add(c Channel) {
	c.base().owner = c
	this.channels[c.Id()] = c
}

// Remove 从连接表移除并销毁,重复移除不做任何事
func (this *Registry) Remove(id uint64) {
	c, ok := this.channels[id]
	if !ok {
		return
	}
	delete(this.channels, id)
	c.Dispose()
}

// Range 遍历全部连接,fn 返回false时停止
func (this *Registry) Range(fn func(Channel) bool) {
	for _, c := range this.channels {
		if !fn(c) {
			return
		}
	}
}

func (this *Registry) OnAccept(f AcceptFunc) Handle {
	return this.accepts.Add(f)
}

func (this *Registry) RemoveListener(h Handle) bool {
	return this.accepts.Remove(h)
}

// Accept 通知 AcceptCallback
func (this *Registry) Accept(c Channel) {
	this.accepts.Range(func(f AcceptFunc) {
		if c.IsDisposed() {
			return
		}
		utils.Try(func() { f(c) }, catch("accept callback"))
	})
}

// Disposing 标记销毁并销毁全部连接,已经销毁时返回false
func (this *Registry) Disposing() bool {
	if this.disposed {
		return false
	}
	this.disposed = true
	channels := make([]Channel, 0, len(this.channels))
	for _, c := range this.channels {
		channels = append(channels, c)
	}
	for _, c := range channels {
		c.Dispose()
	}
	return true
}
