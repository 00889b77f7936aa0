package wss

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/cosgo/logger"
)

// New 创建WebSocket服务,即可做server(Listen/Serve)也可做client(ConnectChannel)
func New(loop *sockets.Loop) *Service {
	return &Service{
		Registry: sockets.NewRegistry(loop, sockets.NetworkProtocolWebSocket),
		route:    Options.Route,
	}
}

type Service struct {
	*sockets.Registry
	mutex    sync.Mutex
	route    string
	server   *http.Server
	listener net.Listener
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

func (s *Service) Listen(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在 ln 上启动 http 服务,例如 cmux 分流后的 listener
func (s *Service) Serve(ln net.Listener) error {
	if s.IsDisposed() {
		return sockets.ErrServiceDisposed
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: Options.ReadHeaderTimeout}
	s.mutex.Lock()
	s.server = srv
	s.listener = ln
	s.mutex.Unlock()
	loop := s.Loop()
	loop.Go(func(ctx context.Context) {
		<-ctx.Done()
		_ = srv.Close()
	})
	loop.Go(func(ctx context.Context) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Alert("wss serve error:%v", err)
		}
	})
	logger.Debug("wss service listening on %v", ln.Addr())
	return nil
}

func (s *Service) HTTPErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(err.Error()))
	}
	logger.Alert(err)
}

// ServeHTTP 在http协程中升级,完成后投递到 Loop
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Loop().Stopped() {
		s.HTTPErrorHandler(w, r, sockets.ErrServiceDisposed)
		return
	}
	if s.route != "" && r.URL.Path != s.route {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 page not found"))
		return
	}
	conn, err := Options.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Alert("wss upgrade error:%v", err)
		return
	}
	s.Loop().Post(func() { s.accept(conn) })
}

func (s *Service) accept(conn *websocket.Conn) {
	if s.IsDisposed() {
		_ = conn.Close()
		return
	}
	c := newChannel(s, sockets.ChannelTypeAccept)
	c.SetRemoteAddress(conn.RemoteAddr().String())
	s.Add(c)
	c.connected(conn)
	s.Accept(c)
}

// ConnectChannel 地址为 ws:// 或 wss:// URL, 立即开始异步连接
func (s *Service) ConnectChannel(address string) (sockets.Channel, error) {
	if s.IsDisposed() {
		return nil, sockets.ErrServiceDisposed
	}
	c := newChannel(s, sockets.ChannelTypeConnect)
	c.SetRemoteAddress(address)
	s.Add(c)
	c.connect(address)
	return c, nil
}

func (s *Service) ConnectEndpoint(net.Addr) (sockets.Channel, error) {
	return nil, sockets.ErrNotSupported
}

// Update WebSocket 发送不需要按帧驱动
func (s *Service) Update() {}

func (s *Service) Dispose() {
	if !s.Disposing() {
		return
	}
	s.mutex.Lock()
	srv := s.server
	s.mutex.Unlock()
	if srv != nil {
		_ = srv.Close()
	}
}
