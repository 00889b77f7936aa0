package coschan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hwcer/coschan/message"
	"github.com/hwcer/coschan/sockets"
	"github.com/hwcer/coschan/wss"
	"gopkg.in/yaml.v3"
)

// Config 配置文件 toml 或者 yaml,地址为空的协议不启动
type Config struct {
	TCPAddress        string   `toml:"tcp_address" yaml:"tcp_address"`
	PacketSizeLength  int      `toml:"packet_size_length" yaml:"packet_size_length"`
	KCPAddress        string   `toml:"kcp_address" yaml:"kcp_address"`
	WSAddress         string   `toml:"ws_address" yaml:"ws_address"`
	WSRoute           string   `toml:"ws_route" yaml:"ws_route"`
	WSOrigin          []string `toml:"ws_origin" yaml:"ws_origin"`
	WSMaxMessageSize  int      `toml:"ws_max_message_size" yaml:"ws_max_message_size"`
	MuxAddress        string   `toml:"mux_address" yaml:"mux_address"` //TCP+WebSocket 共用端口
	MessagesPerSecond float64  `toml:"messages_per_second" yaml:"messages_per_second"`
	MessagesBurst     int      `toml:"messages_burst" yaml:"messages_burst"`
	UpdateInterval    int      `toml:"update_interval_ms" yaml:"update_interval_ms"`
}

func DefaultConfig() Config {
	return Config{
		PacketSizeLength:  message.Options.PacketSizeLength,
		WSRoute:           wss.Options.Route,
		WSMaxMessageSize:  wss.Options.MaxMessageSize,
		MessagesPerSecond: sockets.Options.MessagesPerSecond,
		MessagesBurst:     sockets.Options.MessagesBurst,
		UpdateInterval:    int(sockets.Options.UpdateInterval / time.Millisecond),
	}
}

// LoadConfig 按扩展名选择格式,文件中没有的配置使用默认值
func LoadConfig(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return loadTOML(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return Config{}, fmt.Errorf("load config: unsupported file type %q", path)
	}
}

func loadTOML(path string) (Config, error) {
	cfg := DefaultConfig()
	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if meta.IsDefined("tcp_address") {
		cfg.TCPAddress = strings.TrimSpace(raw.TCPAddress)
	}
	if meta.IsDefined("packet_size_length") {
		cfg.PacketSizeLength = raw.PacketSizeLength
	}
	if meta.IsDefined("kcp_address") {
		cfg.KCPAddress = strings.TrimSpace(raw.KCPAddress)
	}
	if meta.IsDefined("ws_address") {
		cfg.WSAddress = strings.TrimSpace(raw.WSAddress)
	}
	if meta.IsDefined("ws_route") {
		cfg.WSRoute = strings.TrimSpace(raw.WSRoute)
	}
	if meta.IsDefined("ws_origin") {
		cfg.WSOrigin = raw.WSOrigin
	}
	if meta.IsDefined("ws_max_message_size") {
		cfg.WSMaxMessageSize = raw.WSMaxMessageSize
	}
	if meta.IsDefined("mux_address") {
		cfg.MuxAddress = strings.TrimSpace(raw.MuxAddress)
	}
	if meta.IsDefined("messages_per_second") {
		cfg.MessagesPerSecond = raw.MessagesPerSecond
	}
	if meta.IsDefined("messages_burst") {
		cfg.MessagesBurst = raw.MessagesBurst
	}
	if meta.IsDefined("update_interval_ms") {
		cfg.UpdateInterval = raw.UpdateInterval
	}
	return cfg, cfg.Validate()
}

// loadYAML yaml 直接解码到默认值之上
func loadYAML(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if message.MaxPacketSize(c.PacketSizeLength) == 0 {
		return fmt.Errorf("load config: %w", message.ErrPacketSizeLength)
	}
	if c.MuxAddress != "" && (c.TCPAddress != "" || c.WSAddress != "") {
		return fmt.Errorf("load config: mux_address conflicts with tcp_address and ws_address")
	}
	if c.MessagesPerSecond < 0 || c.MessagesBurst < 0 || c.UpdateInterval < 0 || c.WSMaxMessageSize < 0 {
		return fmt.Errorf("load config: negative value")
	}
	return nil
}

// Apply 写入各模块的 Options
func (c *Config) Apply() {
	message.Options.PacketSizeLength = c.PacketSizeLength
	sockets.Options.MessagesPerSecond = c.MessagesPerSecond
	sockets.Options.MessagesBurst = c.MessagesBurst
	if c.UpdateInterval > 0 {
		sockets.Options.UpdateInterval = time.Duration(c.UpdateInterval) * time.Millisecond
	}
	wss.Options.Route = c.WSRoute
	wss.Options.Origin = c.WSOrigin
	if c.WSMaxMessageSize > 0 {
		wss.Options.MaxMessageSize = c.WSMaxMessageSize
	}
}
