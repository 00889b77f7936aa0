package kcp

import (
	ikcp "github.com/xtaci/kcp-go/v5"
)

// ikcpOverhead 引擎分片头长度, mss = Mtu - ikcpOverhead
const ikcpOverhead = 24

// newEngine 按 Options 固定参数创建KCP引擎,收发双方使用服务端连接ID作为conv
func newEngine(conv uint32, output func(buf []byte, size int)) *ikcp.KCP {
	k := ikcp.NewKCP(conv, output)
	k.NoDelay(Options.NoDelay, Options.Interval, Options.Resend, Options.NoCongestion)
	k.WndSize(Options.SendWindow, Options.RecvWindow)
	k.SetMtu(Options.Mtu)
	return k
}

// newRef 从未 Update 的参照引擎, Check() 总是返回引擎当前时钟
func newRef() *ikcp.KCP {
	return ikcp.NewKCP(0, func([]byte, int) {})
}

// engineDelay 距离引擎下一次需要 Update 的毫秒数
func engineDelay(engine, ref *ikcp.KCP) uint32 {
	d := int32(engine.Check() - ref.Check())
	if d < 0 {
		return 0
	}
	return uint32(d)
}
