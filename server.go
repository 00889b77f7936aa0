package coschan

import (
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/coschan/tcp"
	"github.com/hwcer/coschan/wss"
	"github.com/hwcer/cosgo/logger"
)

// Server 按配置启动的一组服务,共用一个 Loop
type Server struct {
	Loop     *sockets.Loop
	Mux      *Mux
	Services []sockets.Service
}

// Start 启动 Config 中配置了地址的全部服务,任何一个失败时关闭已经启动的服务
func Start(loop *sockets.Loop, cfg Config) (srv *Server, err error) {
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Apply()
	srv = &Server{Loop: loop}
	defer func() {
		if err != nil {
			srv.Dispose()
			srv = nil
		}
	}()
	if cfg.MuxAddress != "" {
		var t *tcp.Service
		if t, err = tcp.New(loop, cfg.PacketSizeLength); err != nil {
			return
		}
		w := wss.New(loop)
		srv.Services = append(srv.Services, t, w)
		if srv.Mux, err = NewMux(loop, cfg.MuxAddress, t, w); err != nil {
			return
		}
		logger.Trace("tcp+websocket listening on %v", srv.Mux.Addr())
	}
	for _, v := range []struct {
		protocol sockets.NetworkProtocol
		address  string
	}{
		{sockets.NetworkProtocolTCP, cfg.TCPAddress},
		{sockets.NetworkProtocolKCP, cfg.KCPAddress},
		{sockets.NetworkProtocolWebSocket, cfg.WSAddress},
	} {
		if v.address == "" {
			continue
		}
		var s Listener
		if s, err = Listen(loop, v.protocol, v.address); err != nil {
			return
		}
		srv.Services = append(srv.Services, s)
		logger.Trace("%v listening on %v", v.protocol, s.Addr())
	}
	return
}

// OnAccept 在全部服务上注册 AcceptCallback
func (s *Server) OnAccept(f sockets.AcceptFunc) {
	for _, v := range s.Services {
		v.OnAccept(f)
	}
}

func (s *Server) Size() (n int) {
	for _, v := range s.Services {
		n += v.Size()
	}
	return
}

func (s *Server) Update() {
	for _, v := range s.Services {
		v.Update()
	}
}

func (s *Server) Dispose() {
	for _, v := range s.Services {
		v.Dispose()
	}
	if s.Mux != nil {
		_ = s.Mux.Close()
	}
}
