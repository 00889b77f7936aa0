package wss

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Options WSS模块配置选项
var Options = struct {
	// Origin 允许的来源域名列表,为空时允许所有来源
	Origin []string
	// Route 只在该路径上升级,为空时不检查路径
	Route string
	// MaxMessageSize 单个消息最大长度,超过时以 CloseMessageTooBig 关闭连接
	MaxMessageSize int
	// ReadHeaderTimeout http握手读取超时
	ReadHeaderTimeout time.Duration
	// HandshakeTimeout 客户端握手超时
	HandshakeTimeout time.Duration
	// CloseTimeout 发送Close帧的超时
	CloseTimeout time.Duration
	// Upgrader websocket升级器配置
	Upgrader websocket.Upgrader
}{
	Origin:            []string{},
	MaxMessageSize:    65535,
	ReadHeaderTimeout: 3 * time.Second,
	HandshakeTimeout:  10 * time.Second,
	CloseTimeout:      time.Second,
	Upgrader:          websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
}

func init() {
	Options.Upgrader.CheckOrigin = AccessControlAllow
}

// AccessControlAllow 按 Options.Origin 检查 Origin 请求头
func AccessControlAllow(r *http.Request) bool {
	if len(Options.Origin) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, o := range Options.Origin {
		if o == "*" || o == u.Host {
			return true
		}
	}
	return false
}
