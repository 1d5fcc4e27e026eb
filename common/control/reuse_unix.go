//go:build linux || darwin

package control

import (
	"syscall"

	E "github.com/sagernet/sing-stream/common/exceptions"

	"golang.org/x/sys/unix"
)

// ReuseAddr lets a listener rebind an address still in TIME_WAIT.
func ReuseAddr() Func {
	return func(network, address string, conn syscall.RawConn) error {
		return Raw(conn, func(fd uintptr) error {
			return E.Errors(
				unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1),
				unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1),
			)
		})
	}
}
