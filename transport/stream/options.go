package stream

import (
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
	"github.com/sagernet/sing-stream/transport/socket"
)

const (
	DefaultBufferSize     = 256
	DefaultMaxBufferSize  = 1024
	DefaultConnectTimeout = 10 * time.Second
	DefaultIdleThreshold  = 3 * time.Second
	DefaultIdleSleep      = 50 * time.Millisecond

	// ReceiveCeiling is the largest pending byte count accepted from a peer
	// regardless of buffer limits; anything above is treated as abuse.
	ReceiveCeiling = 50_000_000
)

type Options struct {
	SendBufferSize    int
	ReceiveBufferSize int
	MaxSendSize       int
	MaxReceiveSize    int
	ConnectTimeout    time.Duration
	// IdleThreshold is how long without traffic before the loop starts
	// sleeping IdleSleep between iterations.
	IdleThreshold  time.Duration
	IdleSleep      time.Duration
	ReceiveCeiling int
	// MaxSendRetries is the number of consecutive failed sends tolerated
	// before the worker gives up. Zero retries forever.
	MaxSendRetries int
	Primitives     socket.Primitives
	Logger         log.Logger
}

func (o Options) normalize() (Options, error) {
	if o.SendBufferSize == 0 {
		o.SendBufferSize = DefaultBufferSize
	}
	if o.ReceiveBufferSize == 0 {
		o.ReceiveBufferSize = DefaultBufferSize
	}
	if o.MaxSendSize == 0 {
		o.MaxSendSize = max(DefaultMaxBufferSize, o.SendBufferSize)
	}
	if o.MaxReceiveSize == 0 {
		o.MaxReceiveSize = max(DefaultMaxBufferSize, o.ReceiveBufferSize)
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.IdleThreshold == 0 {
		o.IdleThreshold = DefaultIdleThreshold
	}
	if o.IdleSleep == 0 {
		o.IdleSleep = DefaultIdleSleep
	}
	if o.ReceiveCeiling == 0 {
		o.ReceiveCeiling = ReceiveCeiling
	}
	if o.Primitives == nil {
		o.Primitives = socket.NewSystem()
	}
	if o.Logger == nil {
		o.Logger = log.NewLogger("stream")
	}
	switch {
	case o.SendBufferSize < 0 || o.ReceiveBufferSize < 0:
		return o, E.New("negative buffer size")
	case o.MaxSendSize < o.SendBufferSize:
		return o, E.New("max send size ", o.MaxSendSize, " below send buffer size ", o.SendBufferSize)
	case o.MaxReceiveSize < o.ReceiveBufferSize:
		return o, E.New("max receive size ", o.MaxReceiveSize, " below receive buffer size ", o.ReceiveBufferSize)
	case o.ConnectTimeout < 0 || o.IdleThreshold < 0 || o.IdleSleep < 0:
		return o, E.New("negative duration")
	case o.ReceiveCeiling < 0 || o.MaxSendRetries < 0:
		return o, E.New("negative limit")
	}
	return o, nil
}
