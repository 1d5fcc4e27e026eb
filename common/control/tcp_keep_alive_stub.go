//go:build !linux

package control

import "time"

// SetKeepAlivePeriod is only implemented on Linux; elsewhere net.Dialer.KeepAlive applies.
func SetKeepAlivePeriod(idle time.Duration, interval time.Duration) Func {
	return nil
}
