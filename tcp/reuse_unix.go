//go:build unix

package tcp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control 监听前设置 SO_REUSEADDR
func control(_, _ string, c syscall.RawConn) error {
	var err error
	if e := c.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); e != nil {
		return e
	}
	return err
}
