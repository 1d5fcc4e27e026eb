package stream

import E "github.com/sagernet/sing-stream/common/exceptions"

// Reasons a worker stops, reported by Worker.Err.
var (
	ErrConnectTimeout   = E.New("connect timeout")
	ErrPeerClosed       = E.New("connection closed by peer")
	ErrTransferTooLarge = E.New("incoming transfer exceeds limit")
	ErrSendFailed       = E.New("send failed")
	ErrStopped          = E.New("worker stopped")
	ErrClosed           = E.New("worker closed")
)
