package kcp

import (
	"container/heap"
	"context"
	"errors"
	"net"
	"time"

	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
	ikcp "github.com/xtaci/kcp-go/v5"
)

type Option func(*Service)

// WithClock 替换握手计时使用的时钟
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New 创建KCP服务,所有连接共享同一个UDP socket
//
//	Listen 之后可以接受连接,否则在第一次 ConnectChannel 时绑定随机端口
func New(loop *sockets.Loop, opts ...Option) *Service {
	s := &Service{
		Registry: sockets.NewRegistry(loop, sockets.NetworkProtocolKCP),
		clock:    time.Now,
		remotes:  make(map[remoteKey]*Channel),
		ref:      newRef(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startTime = s.clock()
	return s
}

type remoteKey struct {
	addr string
	id   uint32
}

type Service struct {
	*sockets.Registry
	conn      *net.UDPConn
	clock     func() time.Time
	startTime time.Time
	lastId    uint32
	remotes   map[remoteKey]*Channel //(对端地址,对端连接ID)
	timers    timers
	ref       *ikcp.KCP
	buffer    []byte
}

// TimeNow 服务启动以来的毫秒数
func (s *Service) TimeNow() uint32 {
	return uint32(s.clock().Sub(s.startTime) / time.Millisecond)
}

// Addr 本地UDP地址,未绑定时返回nil
func (s *Service) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Listen 绑定UDP地址并开始接收
func (s *Service) Listen(address string) error {
	if s.IsDisposed() {
		return sockets.ErrServiceDisposed
	}
	if s.conn != nil {
		return errors.New("kcp service already bound")
	}
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetReadBuffer(Options.SocketBufferSize)
	_ = conn.SetWriteBuffer(Options.SocketBufferSize)
	s.conn = conn
	loop := s.Loop()
	loop.Go(func(ctx context.Context) {
		<-ctx.Done()
		_ = conn.Close()
	})
	loop.Go(func(ctx context.Context) {
		s.readLoop(ctx, conn)
	})
	logger.Debug("kcp service listening on %v", conn.LocalAddr())
	return nil
}

func (s *Service) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, Options.MaxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Alert("kcp read udp error:%v", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		s.Loop().Post(func() { s.input(data, addr) })
	}
}

// input 按包类型分发,无法匹配连接的数据包直接丢弃
func (s *Service) input(data []byte, addr *net.UDPAddr) {
	if s.IsDisposed() {
		return
	}
	p, ok := Decode(data)
	if !ok {
		return
	}
	switch p.Type {
	case PacketTypeSYN:
		s.onSyn(addr, p.Local)
	case PacketTypeACK:
		if c := s.local(p.Remote, addr); c != nil {
			c.onAck(p.Local)
		}
	case PacketTypeFIN:
		if c := s.local(p.Remote, addr); c != nil && (c.remoteConn == 0 || c.remoteConn == p.Local) {
			c.onFin(p.ErrorCode)
		}
	case PacketTypeMSG:
		if c := s.remotes[remoteKey{addr: addr.String(), id: p.Local}]; c != nil {
			c.onMsg(p.Payload)
		}
	}
}

// local 通过本地连接ID查找,并校验对端地址
func (s *Service) local(id uint32, addr *net.UDPAddr) *Channel {
	c, _ := s.GetChannel(uint64(id)).(*Channel)
	if c == nil || c.IsDisposed() || c.remote.String() != addr.String() {
		return nil
	}
	return c
}

func (s *Service) onSyn(addr *net.UDPAddr, remoteConn uint32) {
	key := remoteKey{addr: addr.String(), id: remoteConn}
	if c := s.remotes[key]; c != nil {
		if c.Type() == sockets.ChannelTypeAccept && !c.IsDisposed() {
			c.sendAck()
		}
		return
	}
	c := newChannel(s, sockets.ChannelTypeAccept, s.generateId(), addr)
	c.remoteConn = remoteConn
	c.lastRecvTime = s.TimeNow()
	c.engine = newEngine(c.localConn, c.onOutput)
	s.remotes[key] = c
	s.Add(c)
	c.started = true
	c.sendAck()
	c.nextRetry = s.TimeNow() + uint32(Options.AckInterval/time.Millisecond)
	c.schedule(c.nextRetry)
	logger.Debug("kcp accept %v remote conn:%v local conn:%v", addr, remoteConn, c.localConn)
	s.Accept(c)
}

// generateId 分配一个未使用的非0连接ID
func (s *Service) generateId() uint32 {
	for {
		s.lastId++
		if s.lastId == 0 {
			continue
		}
		if s.GetChannel(uint64(s.lastId)) == nil {
			return s.lastId
		}
	}
}

func (s *Service) bind() error {
	if s.conn != nil {
		return nil
	}
	return s.Listen(":0")
}

func (s *Service) ConnectChannel(address string) (sockets.Channel, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	return s.ConnectEndpoint(addr)
}

func (s *Service) ConnectEndpoint(addr net.Addr) (sockets.Channel, error) {
	if s.IsDisposed() {
		return nil, sockets.ErrServiceDisposed
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		var err error
		if udpAddr, err = net.ResolveUDPAddr("udp", addr.String()); err != nil {
			return nil, err
		}
	}
	if err := s.bind(); err != nil {
		return nil, err
	}
	c := newChannel(s, sockets.ChannelTypeConnect, s.generateId(), udpAddr)
	s.Add(c)
	return c, nil
}

// schedule 注册连接下一次 Update 的时间,只保留最早的一个
func (s *Service) schedule(c *Channel, t uint32) {
	now := s.TimeNow()
	if int32(t-now) <= 0 {
		t = now + 1
	}
	if c.scheduled != 0 && int32(c.scheduled-now) > 0 && int32(t-c.scheduled) >= 0 {
		return
	}
	c.scheduled = t
	heap.Push(&s.timers, timer{time: t, id: c.localConn})
}

// Update 只更新到期的连接
func (s *Service) Update() {
	if s.IsDisposed() {
		return
	}
	now := s.TimeNow()
	for s.timers.Len() > 0 {
		t := s.timers[0]
		if int32(t.time-now) > 0 {
			break
		}
		heap.Pop(&s.timers)
		c, _ := s.GetChannel(uint64(t.id)).(*Channel)
		if c == nil || c.IsDisposed() || c.scheduled != t.time {
			continue
		}
		c.scheduled = 0
		c.update(now)
	}
}

// write 只在 Loop 中调用
func (s *Service) write(b []byte, addr *net.UDPAddr) error {
	if s.conn == nil {
		return net.ErrClosed
	}
	_, err := s.conn.WriteToUDP(b, addr)
	return err
}

// scratch 引擎输出共用的写缓冲
func (s *Service) scratch(size int) []byte {
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
	}
	return s.buffer[:size]
}

func (s *Service) forget(c *Channel) {
	if c.remoteConn == 0 {
		return
	}
	key := remoteKey{addr: c.remote.String(), id: c.remoteConn}
	if s.remotes[key] == c {
		delete(s.remotes, key)
	}
}

func (s *Service) Dispose() {
	if !s.Disposing() {
		return
	}
	s.timers = nil
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
