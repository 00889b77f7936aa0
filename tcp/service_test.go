package tcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/hwcer/coschan/sockets"
)

func wait(t *testing.T, loop *sockets.Loop, cond func() bool, services ...sockets.Updater) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("wait timeout")
		}
		loop.Update(services...)
		time.Sleep(time.Millisecond)
	}
}

func newEchoServer(t *testing.T, loop *sockets.Loop, packetSizeLength int) *Service {
	t.Helper()
	s, err := New(loop, packetSizeLength)
	if err != nil {
		t.Fatalf("New:%v", err)
	}
	s.OnAccept(func(ch sockets.Channel) {
		ch.OnRead(func(data []byte) {
			if err := ch.Send(data); err != nil {
				t.Errorf("echo send:%v", err)
			}
		})
	})
	if err = s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen:%v", err)
	}
	return s
}

func TestService_Echo(t *testing.T) {
	for _, width := range []int{2, 4} {
		t.Run(fmt.Sprintf("width%v", width), func(t *testing.T) {
			loop := sockets.NewLoop(context.Background())
			server := newEchoServer(t, loop, width)
			client, _ := New(loop, width)
			defer func() {
				client.Dispose()
				server.Dispose()
				_ = loop.Close()
			}()

			ch, err := client.ConnectChannel(server.Addr().String())
			if err != nil {
				t.Fatalf("ConnectChannel:%v", err)
			}
			const count = 500
			var got [][]byte
			ch.OnRead(func(data []byte) {
				got = append(got, append([]byte(nil), data...))
			})
			ch.OnError(func(_ sockets.Channel, code int) {
				t.Errorf("client error:%v", sockets.ErrCodeText(code))
			})
			ch.Start()
			for i := 0; i < count; i++ {
				if err = ch.Send(bytes.Repeat([]byte{byte(i)}, 2+i*7)); err != nil {
					t.Fatalf("Send:%v", err)
				}
			}
			wait(t, loop, func() bool { return len(got) == count }, server, client)
			for i, b := range got {
				if want := bytes.Repeat([]byte{byte(i)}, 2+i*7); !bytes.Equal(b, want) {
					t.Fatalf("message %v out of order,len:%v", i, len(b))
				}
			}
			if server.Size() != 1 || client.Size() != 1 {
				t.Fatalf("size server:%v client:%v", server.Size(), client.Size())
			}
		})
	}
}

func TestService_Wire(t *testing.T) {
	loop := sockets.NewLoop(context.Background())
	server := newEchoServer(t, loop, 2)
	defer func() {
		server.Dispose()
		_ = loop.Close()
	}()
	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("Dial:%v", err)
	}
	defer func() { _ = conn.Close() }()
	want := []byte{0x04, 0x00, 'p', 'i', 'n', 'g'}
	if _, err = conn.Write(want); err != nil {
		t.Fatalf("Write:%v", err)
	}
	reply := make(chan []byte, 1)
	go func() {
		b := make([]byte, len(want))
		if _, err := io.ReadFull(conn, b); err != nil {
			b = nil
		}
		reply <- b
	}()
	var got []byte
	wait(t, loop, func() bool {
		select {
		case got = <-reply:
			return true
		default:
			return false
		}
	}, server)
	if !bytes.Equal(got, want) {
		t.Fatalf("echo:%v want %v", got, want)
	}
}

func TestService_IllegalPacketSize(t *testing.T) {
	loop := sockets.NewLoop(context.Background())
	server, _ := New(loop, 2)
	code := 0
	var accepted sockets.Channel
	server.OnAccept(func(ch sockets.Channel) {
		accepted = ch
		ch.OnRead(func([]byte) { t.Errorf("ReadCallback on illegal packet") })
		ch.OnError(func(_ sockets.Channel, c int) { code = c })
	})
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen:%v", err)
	}
	defer func() {
		server.Dispose()
		_ = loop.Close()
	}()
	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("Dial:%v", err)
	}
	defer func() { _ = conn.Close() }()
	_, _ = conn.Write([]byte{0x01, 0x00, 'x'})
	wait(t, loop, func() bool { return code != 0 }, server)
	if code != sockets.ErrCodePacketSize {
		t.Fatalf("code:%v want %v", code, sockets.ErrCodePacketSize)
	}
	if !accepted.IsDisposed() || server.Size() != 0 {
		t.Fatalf("channel not removed")
	}
}

func TestService_PeerDisconnect(t *testing.T) {
	loop := sockets.NewLoop(context.Background())
	server, _ := New(loop, 2)
	code := 0
	server.OnAccept(func(ch sockets.Channel) {
		ch.OnError(func(_ sockets.Channel, c int) { code = c })
	})
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen:%v", err)
	}
	defer func() {
		server.Dispose()
		_ = loop.Close()
	}()
	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("Dial:%v", err)
	}
	wait(t, loop, func() bool { return server.Size() == 1 }, server)
	_ = conn.Close()
	wait(t, loop, func() bool { return code != 0 }, server)
	if code != sockets.ErrCodePeerDisconnect {
		t.Fatalf("code:%v want %v", code, sockets.ErrCodePeerDisconnect)
	}
}

func TestService_ConnectError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen:%v", err)
	}
	address := ln.Addr().String()
	_ = ln.Close()

	loop := sockets.NewLoop(context.Background())
	client, _ := New(loop, 2)
	defer func() {
		client.Dispose()
		_ = loop.Close()
	}()
	ch, _ := client.ConnectChannel(address)
	code := 0
	ch.OnError(func(_ sockets.Channel, c int) { code = c })
	ch.Start()
	wait(t, loop, func() bool { return code != 0 }, client)
	if code != sockets.ErrCodeConnectError {
		t.Fatalf("code:%v want %v", code, sockets.ErrCodeConnectError)
	}
	if client.GetChannel(ch.Id()) != nil {
		t.Fatalf("failed channel still registered")
	}
}

func TestChannel_Send(t *testing.T) {
	loop := sockets.NewLoop(context.Background())
	client, _ := New(loop, 2)
	ch, _ := client.ConnectChannel("127.0.0.1:1")
	if err := ch.Send([]byte{1}); !errors.Is(err, sockets.ErrPacketSize) {
		t.Fatalf("Send 1 byte:%v", err)
	}
	if err := ch.Send(make([]byte, 65536)); !errors.Is(err, sockets.ErrPacketSize) {
		t.Fatalf("Send 65536 bytes:%v", err)
	}
	if err := ch.Send(make([]byte, 65535)); err != nil {
		t.Fatalf("Send 65535 bytes:%v", err)
	}
	ch.Dispose()
	ch.Dispose()
	if err := ch.Send([]byte("ping")); !errors.Is(err, sockets.ErrChannelDisposed) {
		t.Fatalf("Send after Dispose:%v", err)
	}
	client.Dispose()
	if _, err := client.ConnectChannel("127.0.0.1:1"); !errors.Is(err, sockets.ErrServiceDisposed) {
		t.Fatalf("ConnectChannel after Dispose:%v", err)
	}
	_ = loop.Close()
}

func TestNew_PacketSizeLength(t *testing.T) {
	if _, err := New(sockets.NewLoop(context.Background()), 3); err == nil {
		t.Fatalf("packet size length 3 accepted")
	}
}
