package coschan

import (
	"errors"
	"fmt"
	"net"

	"github.com/hwcer/coschan/kcp"
	"github.com/hwcer/coschan/message"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/coschan/tcp"
	"github.com/hwcer/coschan/wss"
)

var ErrUnknownProtocol = errors.New("unknown network protocol")

// Listener 可以监听地址的服务, tcp kcp wss 全部实现
type Listener interface {
	sockets.Service
	Listen(address string) error
	Addr() net.Addr
}

// NewService 按协议创建服务, TCP 包头长度使用 message.Options.PacketSizeLength
func NewService(loop *sockets.Loop, protocol sockets.NetworkProtocol) (Listener, error) {
	switch protocol {
	case sockets.NetworkProtocolTCP:
		s, err := tcp.New(loop, message.Options.PacketSizeLength)
		if err != nil {
			return nil, err
		}
		return s, nil
	case sockets.NetworkProtocolKCP:
		return kcp.New(loop), nil
	case sockets.NetworkProtocolWebSocket:
		return wss.New(loop), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownProtocol, protocol)
	}
}

// Listen 创建服务并监听 address
func Listen(loop *sockets.Loop, protocol sockets.NetworkProtocol, address string) (Listener, error) {
	s, err := NewService(loop, protocol)
	if err != nil {
		return nil, err
	}
	if err = s.Listen(address); err != nil {
		s.Dispose()
		return nil, err
	}
	return s, nil
}

// Serve 在外部 listener 上接受连接, KCP 基于UDP不支持
func Serve(s sockets.Service, ln net.Listener) error {
	switch s.Protocol() {
	case sockets.NetworkProtocolTCP:
		return s.(*tcp.Service).Serve(ln)
	case sockets.NetworkProtocolWebSocket:
		return s.(*wss.Service).Serve(ln)
	case sockets.NetworkProtocolKCP:
		return sockets.ErrNotSupported
	default:
		return ErrUnknownProtocol
	}
}
