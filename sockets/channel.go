package sockets

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/hwcer/cosgo/logger"
	"github.com/hwcer/cosgo/utils"
	"golang.org/x/time/rate"
)

var idSeq atomic.Uint64

// GenerateId 全局自增连接ID
func GenerateId() uint64 {
	return idSeq.Add(1)
}

// NewBase 创建连接公共部分, id == 0 时自动生成
func NewBase(service Service, channelType ChannelType, id uint64) *Base {
	if id == 0 {
		id = GenerateId()
	}
	b := &Base{id: id, channelType: channelType, service: service}
	if Options.MessagesPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(Options.MessagesPerSecond), Options.MessagesBurst)
	}
	return b
}

// Base 所有传输层连接的公共实现
type Base struct {
	id          uint64
	channelType ChannelType
	service     Service
	owner       Channel //具体实现,加入Registry时设置
	remote      string
	errorCode   int
	failed      bool
	disposed    bool
	reads       Listeners[ReadFunc]
	errs        Listeners[ErrorFunc]
	limiter     *rate.Limiter
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) Id() uint64 {
	return b.id
}

func (b *Base) Type() ChannelType {
	return b.channelType
}

func (b *Base) Protocol() NetworkProtocol {
	return b.service.Protocol()
}

func (b *Base) Service() Service {
	return b.service
}

func (b *Base) RemoteAddress() string {
	return b.remote
}

func (b *Base) SetRemoteAddress(addr string) {
	b.remote = addr
}

func (b *Base) ErrorCode() int {
	return b.errorCode
}

func (b *Base) IsDisposed() bool {
	return b.disposed
}

func (b *Base) OnRead(f ReadFunc) Handle {
	return b.reads.Add(f)
}

func (b *Base) OnError(f ErrorFunc) Handle {
	return b.errs.Add(f)
}

func (b *Base) RemoveListener(h Handle) bool {
	return b.reads.Remove(h) || b.errs.Remove(h)
}

// Disposing 标记销毁并从Service中移除,已经销毁时返回false
//
//	具体实现的 Dispose 必须首先调用,返回true时再释放自己的资源
func (b *Base) Disposing() bool {
	if b.disposed {
		return false
	}
	b.disposed = true
	b.service.Remove(b.id)
	return true
}

// Read 分发一个完整消息
func (b *Base) Read(data []byte) {
	if b.disposed {
		return
	}
	if b.limiter != nil && !b.limiter.Allow() {
		logger.Alert("channel %v recv rate limited, remote:%v", b.id, b.remote)
		b.Fail(ErrCodeRateLimited)
		return
	}
	b.reads.Range(func(f ReadFunc) {
		if b.disposed {
			return
		}
		utils.Try(func() { f(data) }, b.catch("read callback"))
	})
}

// Fail 连接出错,通知 ErrorCallback 后销毁连接,只会生效一次
func (b *Base) Fail(code int) {
	if b.disposed || b.failed {
		return
	}
	b.failed = true
	b.errorCode = code
	var self Channel = b
	if b.owner != nil {
		self = b.owner
	}
	b.errs.Range(func(f ErrorFunc) {
		utils.Try(func() { f(self, code) }, b.catch("error callback"))
	})
	if b.disposed {
		return
	}
	if b.owner != nil {
		b.owner.Dispose()
	} else {
		b.disposed = true
		b.service.Remove(b.id)
	}
}

func (b *Base) catch(name string) func(any) {
	return func(e any) {
		logger.Error("channel %v %v panic:%v\n%v", b.id, name, e, string(debug.Stack()))
	}
}

// Start 默认不做任何事情
func (b *Base) Start() {}

// Send 由具体实现覆盖
func (b *Base) Send([]byte) error {
	return ErrNotSupported
}

// Dispose 由具体实现覆盖
func (b *Base) Dispose() {
	b.Disposing()
}

func (b *Base) String() string {
	return fmt.Sprintf("%v channel %v(%v) %v", b.Protocol(), b.id, b.channelType, b.remote)
}
