package socket

import (
	"time"

	"github.com/sagernet/sing-stream/common/control"
	"github.com/sagernet/sing-stream/common/log"
)

type ListenerOption func(*Listener)

func WithListenControl(controlFunc control.Func) ListenerOption {
	return func(listener *Listener) {
		listener.control = control.Append(listener.control, controlFunc)
	}
}

func WithListenKeepAlive(idle time.Duration, interval time.Duration) ListenerOption {
	return func(listener *Listener) {
		listener.keepAlive = control.SetKeepAlivePeriod(idle, interval)
	}
}

func WithListenLogger(logger log.Logger) ListenerOption {
	return func(listener *Listener) {
		listener.logger = logger
	}
}
