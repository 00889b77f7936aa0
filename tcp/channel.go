package tcp

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/hwcer/coschan/message"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
)

func newChannel(s *Service, channelType sockets.ChannelType) *Channel {
	c := &Channel{Base: sockets.NewBase(s, channelType, 0), service: s}
	c.recvBuffer = message.NewRingBuffer()
	c.sendBuffer = message.NewRingBuffer()
	c.parser, _ = message.NewPacketParser(s.packetSizeLength, c.recvBuffer)
	c.head = make([]byte, s.packetSizeLength)
	return c
}

// Channel TCP连接
//
//	所有方法只能在 Loop 中调用,IO协程只读写 Start/startSend 交给它的切片
type Channel struct {
	*sockets.Base
	service    *Service
	conn       net.Conn
	head       []byte
	parser     *message.PacketParser
	recvBuffer *message.RingBuffer
	sendBuffer *message.RingBuffer
	started    bool
	connected  bool
	needSend   bool
	isSending  bool
	isRecving  bool
}

func (c *Channel) setConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	c.conn = conn
	c.connected = true
}

// Start Accept连接开始接收,Connect连接开始异步连接,重复调用无效
func (c *Channel) Start() {
	if c.started || c.IsDisposed() {
		return
	}
	c.started = true
	if c.Type() == sockets.ChannelTypeAccept {
		c.startRecv()
		return
	}
	address := c.RemoteAddress()
	loop := c.service.Loop()
	loop.Go(func(ctx context.Context) {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		loop.Post(func() { c.onConnect(conn, err) })
	})
}

func (c *Channel) onConnect(conn net.Conn, err error) {
	if c.IsDisposed() {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		logger.Alert("tcp connect %v error:%v", c.RemoteAddress(), err)
		c.Fail(sockets.ErrCodeConnectError)
		return
	}
	c.setConn(conn)
	c.startRecv()
	if c.sendBuffer.Length() > 0 {
		c.service.markNeedStartSend(c)
	}
}

// Send 写入发送缓冲区,在下一次 Service.Update 时开始发送
func (c *Channel) Send(data []byte) error {
	if c.IsDisposed() {
		return sockets.ErrChannelDisposed
	}
	if err := message.PutPacketSize(c.head, len(data)); err != nil {
		return sockets.ErrPacketSize
	}
	_, _ = c.sendBuffer.Write(c.head)
	_, _ = c.sendBuffer.Write(data)
	if c.connected {
		c.service.markNeedStartSend(c)
	}
	return nil
}

func (c *Channel) startRecv() {
	if c.isRecving || c.IsDisposed() {
		return
	}
	c.isRecving = true
	buf := c.recvBuffer.Last()[c.recvBuffer.LastIndex:]
	conn := c.conn
	c.service.Loop().Go(func(context.Context) {
		n, err := conn.Read(buf)
		c.service.Loop().Post(func() { c.onRecv(n, err) })
	})
}

func (c *Channel) onRecv(n int, err error) {
	c.isRecving = false
	if c.IsDisposed() {
		c.release()
		return
	}
	if n > 0 {
		c.recvBuffer.Commit(n)
		for {
			ok, e := c.parser.Parse()
			if e != nil {
				logger.Alert("tcp channel %v %v", c.Id(), e)
				c.Fail(sockets.ErrCodePacketSize)
				return
			}
			if !ok {
				break
			}
			c.Read(c.parser.Packet())
			if c.IsDisposed() {
				return
			}
		}
	}
	switch {
	case err == nil && n == 0, errors.Is(err, io.EOF):
		c.Fail(sockets.ErrCodePeerDisconnect)
	case err != nil:
		logger.Alert("tcp channel %v recv error:%v", c.Id(), err)
		c.Fail(sockets.ErrCodeSocketError)
	default:
		c.startRecv()
	}
}

func (c *Channel) startSend() {
	if c.isSending || c.IsDisposed() {
		return
	}
	if c.sendBuffer.Length() == 0 {
		return
	}
	end := c.sendBuffer.ChunkSize
	if c.sendBuffer.Chunks() == 1 {
		end = c.sendBuffer.LastIndex
	}
	c.isSending = true
	buf := c.sendBuffer.First()[c.sendBuffer.FirstIndex:end]
	conn := c.conn
	c.service.Loop().Go(func(context.Context) {
		n, err := conn.Write(buf)
		c.service.Loop().Post(func() { c.onSend(n, err) })
	})
}

func (c *Channel) onSend(n int, err error) {
	c.isSending = false
	if c.IsDisposed() {
		c.release()
		return
	}
	if err != nil {
		logger.Alert("tcp channel %v send error:%v", c.Id(), err)
		c.Fail(sockets.ErrCodeSocketError)
		return
	}
	c.sendBuffer.Discard(n)
	c.startSend()
}

// IsSending 是否有正在进行中的写操作
func (c *Channel) IsSending() bool {
	return c.isSending
}

func (c *Channel) Dispose() {
	if !c.Disposing() {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.release()
}

// release IO协程不再持有缓冲区后才回收
func (c *Channel) release() {
	if c.isRecving || c.isSending || c.recvBuffer == nil {
		return
	}
	c.recvBuffer.Release()
	c.sendBuffer.Release()
	c.recvBuffer = nil
	c.sendBuffer = nil
}
