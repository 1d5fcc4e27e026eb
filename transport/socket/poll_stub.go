//go:build !(linux || darwin)

package socket

import (
	"os"
	"syscall"
)

const pollSupported = false

func pollRaw(rawConn syscall.RawConn) (int, error) {
	return 0, os.ErrInvalid
}
