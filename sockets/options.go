package sockets

import "time"

var Options = struct {
	MessagesPerSecond float64       //每个连接每秒允许接收的消息数量,0:不限制
	MessagesBurst     int           //令牌桶容量
	UpdateInterval    time.Duration //Loop.Run 默认帧间隔
	CloseTimeout      time.Duration //Loop.Close 等待协程退出的时间
}{
	MessagesPerSecond: 0,
	MessagesBurst:     200,
	UpdateInterval:    10 * time.Millisecond,
	CloseTimeout:      5 * time.Second,
}
