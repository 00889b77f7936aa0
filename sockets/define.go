package sockets

import (
	"fmt"
	"net"
	"strings"
)

type ChannelType int8

const (
	ChannelTypeConnect ChannelType = iota //主动连接
	ChannelTypeAccept                     //服务器接受
)

func (t ChannelType) String() string {
	if t == ChannelTypeAccept {
		return "accept"
	}
	return "connect"
}

type NetworkProtocol int8

const (
	NetworkProtocolTCP NetworkProtocol = iota + 1
	NetworkProtocolKCP
	NetworkProtocolWebSocket
)

func (p NetworkProtocol) String() string {
	switch p {
	case NetworkProtocolTCP:
		return "tcp"
	case NetworkProtocolKCP:
		return "kcp"
	case NetworkProtocolWebSocket:
		return "ws"
	default:
		return fmt.Sprintf("NetworkProtocol(%d)", int8(p))
	}
}

// ParseNetworkProtocol tcp,kcp,ws(websocket)
func ParseNetworkProtocol(s string) (NetworkProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return NetworkProtocolTCP, nil
	case "kcp", "udp":
		return NetworkProtocolKCP, nil
	case "ws", "wss", "websocket":
		return NetworkProtocolWebSocket, nil
	default:
		return 0, fmt.Errorf("unknown network protocol: %q", s)
	}
}

// ReadFunc 收到一个完整消息,data 在回调返回后会被复用
type ReadFunc func(data []byte)

// ErrorFunc 连接出错,回调后连接会从Service中移除并销毁
type ErrorFunc func(channel Channel, code int)

// AcceptFunc 服务器接受了一个新连接
type AcceptFunc func(channel Channel)

// Channel 一条逻辑连接,所有方法只能在 Loop 执行上下文中调用
//
//	具体实现必须内嵌 *Base
type Channel interface {
	Id() uint64
	Type() ChannelType
	Protocol() NetworkProtocol
	Service() Service
	RemoteAddress() string
	ErrorCode() int
	IsDisposed() bool
	OnRead(f ReadFunc) Handle
	OnError(f ErrorFunc) Handle
	RemoveListener(h Handle) bool
	Start()
	Send(data []byte) error
	Dispose()
	base() *Base
}

// Service 一个传输端点(客户端或者服务器)上全部连接的管理器
//
//	具体实现必须内嵌 *Registry
type Service interface {
	Protocol() NetworkProtocol
	Loop() *Loop
	Size() int
	GetChannel(id uint64) Channel
	ConnectChannel(address string) (Channel, error)
	ConnectEndpoint(addr net.Addr) (Channel, error)
	Remove(id uint64)
	OnAccept(f AcceptFunc) Handle
	RemoveListener(h Handle) bool
	Update()
	Dispose()
	IsDisposed() bool
	registry() *Registry
}

// Updater 每一帧由 Loop 调用
type Updater interface {
	Update()
}
