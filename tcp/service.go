package tcp

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/hwcer/coschan/message"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
)

// New 创建TCP服务,即可做server(Listen/Serve)也可做client(ConnectChannel)
//
//	packetSizeLength 包头长度 2 或者 4,同一个服务内所有连接相同
func New(loop *sockets.Loop, packetSizeLength int) (*Service, error) {
	if message.MaxPacketSize(packetSizeLength) == 0 {
		return nil, message.ErrPacketSizeLength
	}
	s := &Service{
		Registry:         sockets.NewRegistry(loop, sockets.NetworkProtocolTCP),
		packetSizeLength: packetSizeLength,
	}
	return s, nil
}

type Service struct {
	*sockets.Registry
	mutex            sync.Mutex
	listener         net.Listener
	needStartSend    []*Channel
	packetSizeLength int
}

func (s *Service) PacketSizeLength() int {
	return s.packetSizeLength
}

// Addr 监听地址,未监听时返回nil
func (s *Service) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen 监听 address 并开始接受连接
func (s *Service) Listen(address string) error {
	lc := net.ListenConfig{Control: control}
	ln, err := lc.Listen(s.Loop().Context(), "tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 使用外部创建的 listener 接受连接,例如 cmux 分流后的 listener
func (s *Service) Serve(ln net.Listener) error {
	if s.IsDisposed() {
		return sockets.ErrServiceDisposed
	}
	s.mutex.Lock()
	s.listener = ln
	s.mutex.Unlock()
	loop := s.Loop()
	loop.Go(func(ctx context.Context) {
		<-ctx.Done()
		_ = ln.Close()
	})
	loop.Go(func(ctx context.Context) {
		s.acceptLoop(ctx, ln)
	})
	logger.Debug("tcp service listening on %v", ln.Addr())
	return nil
}

func (s *Service) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Alert("tcp accept error:%v", err)
			continue
		}
		s.Loop().Post(func() { s.accept(conn) })
	}
}

func (s *Service) accept(conn net.Conn) {
	if s.IsDisposed() {
		_ = conn.Close()
		return
	}
	c := newChannel(s, sockets.ChannelTypeAccept)
	c.SetRemoteAddress(conn.RemoteAddr().String())
	c.setConn(conn)
	s.Add(c)
	s.Accept(c)
	if !c.IsDisposed() {
		c.Start()
	}
}

func (s *Service) ConnectChannel(address string) (sockets.Channel, error) {
	if s.IsDisposed() {
		return nil, sockets.ErrServiceDisposed
	}
	c := newChannel(s, sockets.ChannelTypeConnect)
	c.SetRemoteAddress(address)
	s.Add(c)
	return c, nil
}

func (s *Service) ConnectEndpoint(addr net.Addr) (sockets.Channel, error) {
	if addr == nil {
		return nil, sockets.ErrNotSupported
	}
	return s.ConnectChannel(addr.String())
}

// markNeedStartSend 在下一次 Update 时开始发送
func (s *Service) markNeedStartSend(c *Channel) {
	if c.needSend {
		return
	}
	c.needSend = true
	s.needStartSend = append(s.needStartSend, c)
}

// Update 开始发送本帧内有新数据的连接
func (s *Service) Update() {
	if len(s.needStartSend) == 0 {
		return
	}
	channels := s.needStartSend
	s.needStartSend = nil
	for _, c := range channels {
		c.needSend = false
		if c.IsDisposed() || c.isSending {
			continue
		}
		c.startSend()
	}
}

func (s *Service) Dispose() {
	if !s.Disposing() {
		return
	}
	s.needStartSend = nil
	s.mutex.Lock()
	ln := s.listener
	s.mutex.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}
