package coschan

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/coschan/tcp"
	"github.com/hwcer/coschan/wss"
	"github.com/hwcer/cosgo/logger"
	"github.com/soheilhy/cmux"
)

// Mux TCP 和 WebSocket 共用一个端口, HTTP 请求交给 WebSocket, 其他交给 TCP
//
//	TCP 客户端必须先发送数据才能完成分流
type Mux struct {
	mux       cmux.CMux
	listener  net.Listener
	TCP       *tcp.Service
	WebSocket *wss.Service
}

func NewMux(loop *sockets.Loop, address string, t *tcp.Service, w *wss.Service) (*Mux, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	m := &Mux{mux: cmux.New(ln), listener: ln, TCP: t, WebSocket: w}
	if err = w.Serve(m.mux.Match(cmux.HTTP1Fast())); err != nil {
		_ = ln.Close()
		return nil, err
	}
	if err = t.Serve(m.mux.Match(cmux.Any())); err != nil {
		_ = ln.Close()
		return nil, err
	}
	loop.Go(func(ctx context.Context) {
		<-ctx.Done()
		_ = ln.Close()
	})
	loop.Go(func(ctx context.Context) {
		if err := m.mux.Serve(); err != nil && ctx.Err() == nil && !isClosed(err) {
			logger.Alert("cmux serve error:%v", err)
		}
	})
	return m, nil
}

func (m *Mux) Addr() net.Addr {
	return m.listener.Addr()
}

func (m *Mux) Close() error {
	return m.listener.Close()
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, cmux.ErrListenerClosed) || strings.Contains(err.Error(), "use of closed network connection")
}
