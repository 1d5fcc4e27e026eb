package exceptions

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsClosed reports whether err means the connection can no longer be used.
func IsClosed(err error) bool {
	return IsMulti(err,
		io.EOF,
		io.ErrUnexpectedEOF,
		io.ErrClosedPipe,
		net.ErrClosed,
		os.ErrClosed,
		syscall.EPIPE,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.ENOTCONN,
	)
}

func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func IsClosedOrCanceled(err error) bool {
	return IsClosed(err) || IsCanceled(err)
}
