package wss

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
)

func newChannel(s *Service, channelType sockets.ChannelType) *Channel {
	c := &Channel{Base: sockets.NewBase(s, channelType, 0), service: s, queue: queue.New()}
	c.ctx, c.cancel = context.WithCancel(s.Loop().Context())
	return c
}

// Channel WebSocket连接,同一时间最多只有一个写操作
type Channel struct {
	*sockets.Base
	service     *Service
	conn        *websocket.Conn
	ctx         context.Context
	cancel      context.CancelFunc
	queue       *queue.Queue
	isConnected bool
	isSending   bool
}

func (c *Channel) connect(address string) {
	loop := c.service.Loop()
	ctx := c.ctx
	loop.Go(func(context.Context) {
		dialer := websocket.Dialer{HandshakeTimeout: Options.HandshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, address, nil)
		loop.Post(func() { c.onConnect(conn, err) })
	})
}

func (c *Channel) onConnect(conn *websocket.Conn, err error) {
	if c.IsDisposed() {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		logger.Alert("wss connect %v error:%v", c.RemoteAddress(), err)
		c.Fail(sockets.ErrCodeWebsocketConnectError)
		return
	}
	c.connected(conn)
}

func (c *Channel) connected(conn *websocket.Conn) {
	c.conn = conn
	c.isConnected = true
	loop := c.service.Loop()
	loop.Go(func(context.Context) {
		c.recvLoop(conn)
	})
	c.startSend()
}

// recvLoop 逐个读取完整消息,一个消息的所有分片拼接后才投递
func (c *Channel) recvLoop(conn *websocket.Conn) {
	loop := c.service.Loop()
	limit := Options.MaxMessageSize
	for {
		_, r, err := conn.NextReader()
		if err != nil {
			loop.Post(func() { c.onRecvError(err) })
			return
		}
		data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
		if err != nil {
			loop.Post(func() { c.onRecvError(err) })
			return
		}
		if len(data) > limit {
			loop.Post(c.onMessageTooBig)
			return
		}
		loop.Post(func() { c.onRecv(data) })
	}
}

func (c *Channel) onRecv(data []byte) {
	if c.IsDisposed() {
		return
	}
	c.Read(data)
}

func (c *Channel) onRecvError(err error) {
	if c.IsDisposed() {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		logger.Debug("wss channel %v closed by peer:%v", c.Id(), ce)
		c.Fail(sockets.ErrCodeWebsocketPeerReset)
		return
	}
	logger.Alert("wss channel %v recv error:%v", c.Id(), err)
	c.Fail(sockets.ErrCodeWebsocketRecvError)
}

func (c *Channel) onMessageTooBig() {
	if c.IsDisposed() {
		return
	}
	logger.Alert("wss channel %v recv message too big, limit:%v", c.Id(), Options.MaxMessageSize)
	c.Fail(sockets.ErrCodeWebsocketMessageTooBig)
}

// closeCode 断开时发送的Close帧, 0 表示直接关闭
func closeCode(code int) (int, string) {
	switch code {
	case sockets.ErrCodeSuccess:
		return websocket.CloseNormalClosure, ""
	case sockets.ErrCodeWebsocketMessageTooBig:
		return websocket.CloseMessageTooBig, "message too big"
	default:
		return 0, ""
	}
}

// shutdown 发送Close帧并关闭连接,写操作可能阻塞,不在执行上下文中调用
func shutdown(conn *websocket.Conn, code int, text string) {
	if code != 0 {
		deadline := time.Now().Add(Options.CloseTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	}
	_ = conn.Close()
}

// Send 进入发送队列,连接成功后按顺序发送
func (c *Channel) Send(data []byte) error {
	if c.IsDisposed() {
		return sockets.ErrChannelDisposed
	}
	b := make([]byte, len(data))
	copy(b, data)
	c.queue.Add(b)
	if c.isConnected && !c.isSending {
		c.startSend()
	}
	return nil
}

func (c *Channel) startSend() {
	if c.isSending || c.IsDisposed() || c.queue.Length() == 0 {
		return
	}
	c.isSending = true
	data, _ := c.queue.Remove().([]byte)
	conn := c.conn
	loop := c.service.Loop()
	loop.Go(func(context.Context) {
		err := conn.WriteMessage(websocket.BinaryMessage, data)
		loop.Post(func() { c.onSend(err) })
	})
}

func (c *Channel) onSend(err error) {
	c.isSending = false
	if c.IsDisposed() {
		return
	}
	if err != nil {
		logger.Alert("wss channel %v send error:%v", c.Id(), err)
		c.Fail(sockets.ErrCodeWebsocketSendError)
		return
	}
	c.startSend()
}

func (c *Channel) Dispose() {
	if !c.Disposing() {
		return
	}
	c.cancel()
	if conn := c.conn; conn != nil {
		code, text := closeCode(c.ErrorCode())
		if c.isSending {
			//写操作进行中, Close帧需要等待写锁,直接关闭
			code = 0
		}
		loop := c.service.Loop()
		if loop.Stopped() {
			shutdown(conn, code, text)
		} else {
			loop.Go(func(context.Context) { shutdown(conn, code, text) })
		}
	}
	c.queue = queue.New()
}
