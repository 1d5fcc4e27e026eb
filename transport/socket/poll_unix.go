//go:build linux || darwin

package socket

import (
	"errors"
	"io"
	"syscall"

	"golang.org/x/sys/unix"
)

const pollSupported = true

func pollRaw(rawConn syscall.RawConn) (available int, err error) {
	controlErr := rawConn.Control(func(fd uintptr) {
		available, err = unix.IoctlGetInt(int(fd), ioctlReadable)
		if err != nil || available > 0 {
			return
		}
		// nothing pending: a zero-length peek tells an idle stream from a closed one
		var probe [1]byte
		n, _, recvErr := unix.Recvfrom(int(fd), probe[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case recvErr == nil && n == 0:
			err = io.EOF
		case recvErr == nil:
			// data landed between the two calls, count all of it
			available, err = unix.IoctlGetInt(int(fd), ioctlReadable)
		case errors.Is(recvErr, unix.EAGAIN), errors.Is(recvErr, unix.EWOULDBLOCK), errors.Is(recvErr, unix.EINTR):
		default:
			err = recvErr
		}
	})
	if controlErr != nil {
		return 0, controlErr
	}
	return
}
