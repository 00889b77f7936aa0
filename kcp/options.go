package kcp

import "time"

// Options KCP模块配置选项
var Options = struct {
	// NoDelay 引擎参数 nodelay,interval,resend,nc
	NoDelay      int
	Interval     int
	Resend       int
	NoCongestion int
	// SendWindow RecvWindow 收发窗口,待发送数量超过 2*SendWindow 时断开连接
	SendWindow int
	RecvWindow int
	// Mtu 引擎MTU,不包含5字节的消息头
	Mtu int
	// ConnectTimeout 握手超时
	ConnectTimeout time.Duration
	// SynInterval 客户端重发SYN间隔
	SynInterval time.Duration
	// AckInterval 服务端重发ACK间隔
	AckInterval time.Duration
	// FinCount 断开时发送FIN的次数
	FinCount int
	// SocketBufferSize UDP socket 收发缓冲区
	SocketBufferSize int
	// MaxDatagramSize 单个UDP数据包最大长度
	MaxDatagramSize int
}{
	NoDelay:          1,
	Interval:         10,
	Resend:           1,
	NoCongestion:     1,
	SendWindow:       256,
	RecvWindow:       256,
	Mtu:              470,
	ConnectTimeout:   10 * time.Second,
	SynInterval:      300 * time.Millisecond,
	AckInterval:      200 * time.Millisecond,
	FinCount:         4,
	SocketBufferSize: 1 << 24,
	MaxDatagramSize:  2048,
}
