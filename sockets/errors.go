package sockets

import (
	"errors"
	"fmt"
)

var (
	ErrChannelDisposed = errors.New("channel disposed, can not send message")
	ErrServiceDisposed = errors.New("service disposed")
	ErrNotSupported    = errors.New("operation not supported")
	ErrPacketSize      = errors.New("send packet size illegal")
	ErrWaitSendTooMany = errors.New("too many messages waiting to be sent")
)

// ErrorCallback 错误码
const (
	ErrCodeSuccess = 0

	ErrCodePeerDisconnect = 100000 + iota
	ErrCodeSocketError
	ErrCodeConnectError
	ErrCodePacketSize
	ErrCodeSocketCantSend
	ErrCodeRateLimited

	ErrCodeKcpCantConnect
	ErrCodeKcpWaitSendSizeTooLarge
	ErrCodeKcpNetworkReset

	ErrCodeWebsocketConnectError
	ErrCodeWebsocketSendError
	ErrCodeWebsocketRecvError
	ErrCodeWebsocketPeerReset
	ErrCodeWebsocketMessageTooBig
)

var errCodeText = map[int]string{
	ErrCodeSuccess:                 "success",
	ErrCodePeerDisconnect:          "peer disconnect",
	ErrCodeSocketError:             "socket error",
	ErrCodeConnectError:            "connect error",
	ErrCodePacketSize:              "packet size illegal",
	ErrCodeSocketCantSend:          "socket can not send",
	ErrCodeRateLimited:             "rate limited",
	ErrCodeKcpCantConnect:          "kcp can not connect",
	ErrCodeKcpWaitSendSizeTooLarge: "kcp wait send size too large",
	ErrCodeKcpNetworkReset:         "kcp network reset",
	ErrCodeWebsocketConnectError:   "websocket connect error",
	ErrCodeWebsocketSendError:      "websocket send error",
	ErrCodeWebsocketRecvError:      "websocket recv error",
	ErrCodeWebsocketPeerReset:      "websocket peer reset",
	ErrCodeWebsocketMessageTooBig:  "websocket message too big",
}

// ErrCodeText 错误码说明
func ErrCodeText(code int) string {
	if s, ok := errCodeText[code]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", code)
}
