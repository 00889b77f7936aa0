package sockets

import (
	"context"
	"errors"
	"net"
	"testing"
)

type testService struct {
	*Registry
}

func (s *testService) ConnectChannel(string) (Channel, error) {
	c := newTestChannel(s)
	s.Add(c)
	return c, nil
}

func (s *testService) ConnectEndpoint(net.Addr) (Channel, error) {
	return nil, ErrNotSupported
}

func (s *testService) Update() {}

func (s *testService) Dispose() {
	s.Disposing()
}

type testChannel struct {
	*Base
	released int
	sent     [][]byte
}

func newTestChannel(s Service) *testChannel {
	return &testChannel{Base: NewBase(s, ChannelTypeConnect, 0)}
}

func (c *testChannel) Send(data []byte) error {
	if c.IsDisposed() {
		return ErrChannelDisposed
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *testChannel) Dispose() {
	if !c.Disposing() {
		return
	}
	c.released++
}

func newTestService() *testService {
	return &testService{Registry: NewRegistry(NewLoop(context.Background()), NetworkProtocolTCP)}
}

func TestChannel_DisposeTwice(t *testing.T) {
	s := newTestService()
	ch, _ := s.ConnectChannel("")
	c := ch.(*testChannel)
	errs := 0
	c.OnError(func(Channel, int) { errs++ })
	c.Dispose()
	c.Dispose()
	if c.released != 1 {
		t.Fatalf("released:%v want 1", c.released)
	}
	if errs != 0 {
		t.Fatalf("local dispose must not fire ErrorCallback")
	}
	if s.GetChannel(c.Id()) != nil || s.Size() != 0 {
		t.Fatalf("disposed channel still in service")
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrChannelDisposed) {
		t.Fatalf("Send on disposed channel:%v", err)
	}
	s.Remove(c.Id())
}

func TestChannel_FailOnce(t *testing.T) {
	s := newTestService()
	ch, _ := s.ConnectChannel("")
	c := ch.(*testChannel)
	var codes []int
	var got Channel
	c.OnError(func(ch Channel, code int) {
		got = ch
		codes = append(codes, code)
		if s.GetChannel(ch.Id()) == nil {
			t.Errorf("channel removed before ErrorCallback")
		}
	})
	reads := 0
	c.OnRead(func([]byte) { reads++ })

	c.Fail(ErrCodePeerDisconnect)
	c.Fail(ErrCodeSocketError)
	c.Read([]byte("late"))

	if len(codes) != 1 || codes[0] != ErrCodePeerDisconnect {
		t.Fatalf("ErrorCallback codes:%v", codes)
	}
	if got != Channel(c) {
		t.Fatalf("ErrorCallback channel is not the concrete channel")
	}
	if c.ErrorCode() != ErrCodePeerDisconnect {
		t.Fatalf("ErrorCode:%v", c.ErrorCode())
	}
	if !c.IsDisposed() || c.released != 1 || s.Size() != 0 {
		t.Fatalf("failed channel not disposed,released:%v size:%v", c.released, s.Size())
	}
	if reads != 0 {
		t.Fatalf("ReadCallback after ErrorCallback")
	}
}

func TestChannel_ReadCallbacks(t *testing.T) {
	s := newTestService()
	ch, _ := s.ConnectChannel("")
	var order []string
	h := ch.OnRead(func(b []byte) { order = append(order, "a:"+string(b)) })
	ch.OnRead(func(b []byte) { panic("callback bug") })
	ch.OnRead(func(b []byte) { order = append(order, "c:"+string(b)) })
	ch.(*testChannel).Read([]byte("1"))
	if !ch.RemoveListener(h) || ch.RemoveListener(h) {
		t.Fatalf("RemoveListener not idempotent")
	}
	ch.(*testChannel).Read([]byte("2"))
	want := []string{"a:1", "c:1", "c:2"}
	if len(order) != len(want) {
		t.Fatalf("order:%v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order:%v want %v", order, want)
		}
	}
	if ch.IsDisposed() {
		t.Fatalf("panic in read callback must not dispose channel")
	}
}

func TestChannel_RateLimited(t *testing.T) {
	old := Options.MessagesPerSecond
	oldBurst := Options.MessagesBurst
	Options.MessagesPerSecond = 1
	Options.MessagesBurst = 2
	defer func() {
		Options.MessagesPerSecond = old
		Options.MessagesBurst = oldBurst
	}()
	s := newTestService()
	ch, _ := s.ConnectChannel("")
	code := 0
	ch.OnError(func(_ Channel, c int) { code = c })
	for i := 0; i < 3; i++ {
		ch.(*testChannel).Read([]byte("m"))
	}
	if code != ErrCodeRateLimited {
		t.Fatalf("code:%v want %v", code, ErrCodeRateLimited)
	}
}

func TestService_Dispose(t *testing.T) {
	s := newTestService()
	var channels []*testChannel
	for i := 0; i < 5; i++ {
		ch, _ := s.ConnectChannel("")
		channels = append(channels, ch.(*testChannel))
	}
	accepted := 0
	s.OnAccept(func(Channel) { accepted++ })
	s.Accept(channels[0])
	if accepted != 1 {
		t.Fatalf("AcceptCallback not called")
	}
	s.Update()
	s.Dispose()
	s.Dispose()
	for _, c := range channels {
		if c.released != 1 {
			t.Fatalf("channel %v released:%v", c.Id(), c.released)
		}
	}
	if !s.IsDisposed() || s.Size() != 0 {
		t.Fatalf("service not disposed")
	}
}

func TestParseNetworkProtocol(t *testing.T) {
	for s, want := range map[string]NetworkProtocol{"tcp": NetworkProtocolTCP, "KCP": NetworkProtocolKCP, "websocket": NetworkProtocolWebSocket} {
		p, err := ParseNetworkProtocol(s)
		if err != nil || p != want {
			t.Errorf("%v:%v %v", s, p, err)
		}
	}
	if _, err := ParseNetworkProtocol("quic"); err == nil {
		t.Errorf("unknown protocol accepted")
	}
}
