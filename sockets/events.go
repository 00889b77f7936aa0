package sockets

import "sync/atomic"

// Handle 事件监听句柄,用于移除监听
type Handle uint64

var handleSeq atomic.Uint64

type listener[T any] struct {
	handle Handle
	f      T
}

// Listeners 按注册顺序执行的监听列表,非线程安全
type Listeners[T any] struct {
	items []listener[T]
}

func (this *Listeners[T]) Add(f T) Handle {
	h := Handle(handleSeq.Add(1))
	this.items = append(this.items, listener[T]{handle: h, f: f})
	return h
}

// Remove 重复移除返回false
func (this *Listeners[T]) Remove(h Handle) bool {
	for i, l := range this.items {
		if l.handle == h {
			items := make([]listener[T], 0, len(this.items)-1)
			items = append(items, this.items[:i]...)
			this.items = append(items, this.items[i+1:]...)
			return true
		}
	}
	return false
}

func (this *Listeners[T]) Len() int {
	return len(this.items)
}

// Range 遍历开始时的快照,回调中增删监听不影响本次遍历
func (this *Listeners[T]) Range(fn func(T)) {
	items := this.items
	for _, l := range items {
		fn(l.f)
	}
}
