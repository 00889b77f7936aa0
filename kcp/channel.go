package kcp

import (
	"net"
	"time"

	"github.com/eapache/queue"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
	ikcp "github.com/xtaci/kcp-go/v5"
)

type State int8

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unconnected"
	}
}

func newChannel(s *Service, channelType sockets.ChannelType, localConn uint32, remote *net.UDPAddr) *Channel {
	c := &Channel{
		Base:       sockets.NewBase(s, channelType, uint64(localConn)),
		service:    s,
		localConn:  localConn,
		remote:     remote,
		state:      StateConnecting,
		createTime: s.TimeNow(),
		pending:    queue.New(),
	}
	c.SetRemoteAddress(remote.String())
	return c
}

// Channel KCP连接
type Channel struct {
	*sockets.Base
	service    *Service
	engine     *ikcp.KCP
	remote     *net.UDPAddr
	localConn  uint32
	remoteConn uint32
	state      State
	createTime uint32
	nextRetry  uint32
	scheduled  uint32
	started    bool
	peerFin    bool
	pending    *queue.Queue //连接成功前的消息
	recvBuf    []byte

	//最后收到数据的时间,只做记录,不做空闲超时
	lastRecvTime uint32
}

// MaxMessageSize 单条消息最大长度,引擎最多拆分为255个分片且不超过接收窗口
func MaxMessageSize() int {
	frg := Options.RecvWindow
	if frg > 255 {
		frg = 255
	}
	return (Options.Mtu - ikcpOverhead) * frg
}

func (c *Channel) LocalConn() uint32 {
	return c.localConn
}

func (c *Channel) RemoteConn() uint32 {
	return c.remoteConn
}

func (c *Channel) State() State {
	return c.state
}

// LastRecvTime 最后一次收到对端数据的时间(服务启动以来的毫秒数)
func (c *Channel) LastRecvTime() uint32 {
	return c.lastRecvTime
}

// Start 客户端开始发送SYN
func (c *Channel) Start() {
	if c.started || c.IsDisposed() {
		return
	}
	c.started = true
	if c.Type() == sockets.ChannelTypeConnect {
		c.sendSyn()
		c.nextRetry = c.service.TimeNow() + uint32(Options.SynInterval/time.Millisecond)
		c.schedule(c.nextRetry)
	}
}

func (c *Channel) schedule(t uint32) {
	c.service.schedule(c, t)
}

// update 到期时由 Service.Update 调用
func (c *Channel) update(now uint32) {
	if c.state == StateConnected {
		c.engine.Update()
		c.schedule(now + engineDelay(c.engine, c.service.ref))
		return
	}
	timeout := c.createTime + uint32(Options.ConnectTimeout/time.Millisecond)
	if int32(now-timeout) >= 0 {
		logger.Alert("kcp channel %v connect %v timeout", c.localConn, c.remote)
		c.Fail(sockets.ErrCodeKcpCantConnect)
		return
	}
	if int32(now-c.nextRetry) >= 0 {
		if c.Type() == sockets.ChannelTypeConnect {
			c.sendSyn()
			c.nextRetry = now + uint32(Options.SynInterval/time.Millisecond)
		} else {
			c.sendAck()
			c.nextRetry = now + uint32(Options.AckInterval/time.Millisecond)
		}
	}
	next := c.nextRetry
	if int32(timeout-next) < 0 {
		next = timeout
	}
	c.schedule(next)
}

func (c *Channel) sendSyn() {
	c.write(EncodeSYN(c.localConn))
}

func (c *Channel) sendAck() {
	c.write(EncodeACK(c.localConn, c.remoteConn))
}

// onOutput 引擎输出回调,加上消息头后写入UDP
func (c *Channel) onOutput(buf []byte, size int) {
	if c.IsDisposed() {
		return
	}
	b := c.service.scratch(HeaderSize + size)
	putHeader(b, PacketTypeMSG, c.localConn)
	copy(b[HeaderSize:], buf[:size])
	c.write(b)
}

func (c *Channel) write(b []byte) {
	if err := c.service.write(b, c.remote); err != nil {
		logger.Alert("kcp channel %v send to %v error:%v", c.localConn, c.remote, err)
		c.service.Loop().Post(func() { c.Fail(sockets.ErrCodeSocketCantSend) })
	}
}

// onAck 客户端握手成功
func (c *Channel) onAck(remoteConn uint32) {
	if c.Type() != sockets.ChannelTypeConnect {
		return
	}
	c.lastRecvTime = c.service.TimeNow()
	if c.state == StateConnected {
		if remoteConn == c.remoteConn {
			c.write(EncodeMSG(c.localConn, nil))
		}
		return
	}
	c.remoteConn = remoteConn
	c.service.remotes[remoteKey{addr: c.remote.String(), id: remoteConn}] = c
	c.engine = newEngine(remoteConn, c.onOutput)
	c.write(EncodeMSG(c.localConn, nil))
	c.connected()
}

func (c *Channel) connected() {
	c.state = StateConnected
	logger.Debug("kcp channel %v connected, remote conn:%v", c.localConn, c.remoteConn)
	for c.pending.Length() > 0 {
		data, _ := c.pending.Remove().([]byte)
		//Send 已经检查过长度,这里失败说明引擎状态异常
		if c.engine.Send(data) < 0 {
			logger.Error("kcp channel %v send pending message size:%v failed", c.localConn, len(data))
			c.Fail(sockets.ErrCodePacketSize)
			return
		}
	}
	c.schedule(c.service.TimeNow())
}

func (c *Channel) onMsg(payload []byte) {
	if c.IsDisposed() {
		return
	}
	c.lastRecvTime = c.service.TimeNow()
	if c.state != StateConnected {
		if c.Type() != sockets.ChannelTypeAccept {
			return
		}
		c.connected()
		if c.IsDisposed() {
			return
		}
	}
	if len(payload) == 0 {
		return
	}
	c.engine.Input(payload, true, false)
	c.schedule(c.service.TimeNow())
	for {
		n := c.engine.PeekSize()
		if n < 0 {
			return
		}
		if n == 0 {
			logger.Alert("kcp channel %v recv zero size message", c.localConn)
			c.Fail(sockets.ErrCodeKcpNetworkReset)
			return
		}
		if cap(c.recvBuf) < n {
			c.recvBuf = make([]byte, n)
		}
		buf := c.recvBuf[:n]
		c.engine.Recv(buf)
		c.Read(buf)
		if c.IsDisposed() {
			return
		}
	}
}

func (c *Channel) onFin(code int) {
	logger.Debug("kcp channel %v recv fin, code:%v", c.localConn, sockets.ErrCodeText(code))
	c.peerFin = true
	c.Fail(sockets.ErrCodePeerDisconnect)
}

// Send 连接成功前进入等待队列,之后交给引擎
func (c *Channel) Send(data []byte) error {
	if c.IsDisposed() {
		return sockets.ErrChannelDisposed
	}
	if len(data) == 0 || len(data) > MaxMessageSize() {
		return sockets.ErrPacketSize
	}
	if c.waitSnd() > 2*Options.SendWindow {
		logger.Alert("kcp channel %v wait send size too large:%v", c.localConn, c.waitSnd())
		c.Fail(sockets.ErrCodeKcpWaitSendSizeTooLarge)
		return sockets.ErrWaitSendTooMany
	}
	if c.state != StateConnected {
		b := make([]byte, len(data))
		copy(b, data)
		c.pending.Add(b)
		return nil
	}
	if c.engine.Send(data) < 0 {
		return sockets.ErrPacketSize
	}
	c.schedule(c.service.TimeNow())
	return nil
}

func (c *Channel) waitSnd() int {
	if c.state != StateConnected {
		return c.pending.Length()
	}
	return c.engine.WaitSnd()
}

func (c *Channel) Dispose() {
	if !c.Disposing() {
		return
	}
	code := c.ErrorCode()
	if c.remoteConn != 0 && !c.peerFin && code != sockets.ErrCodeSocketCantSend {
		fin := EncodeFIN(c.localConn, c.remoteConn, code)
		for i := 0; i < Options.FinCount; i++ {
			if c.service.write(fin, c.remote) != nil {
				break
			}
		}
	}
	c.state = StateDisposed
	c.service.forget(c)
	c.engine = nil
	c.pending = queue.New()
}
