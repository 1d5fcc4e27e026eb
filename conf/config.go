package conf

import (
	"os"

	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/json"
	"github.com/sagernet/sing-stream/common/json/badoption"
	"github.com/sagernet/sing-stream/transport/socket"
	"github.com/sagernet/sing-stream/transport/stream"
)

// StreamConfig is the file form of stream.Options. Zero fields keep the
// worker defaults.
type StreamConfig struct {
	SendBufferSize    int                `json:"send_buffer_size,omitempty"`
	ReceiveBufferSize int                `json:"receive_buffer_size,omitempty"`
	MaxSendSize       int                `json:"max_send_size,omitempty"`
	MaxReceiveSize    int                `json:"max_receive_size,omitempty"`
	ConnectTimeout    badoption.Duration `json:"connect_timeout,omitempty"`
	IdleThreshold     badoption.Duration `json:"idle_threshold,omitempty"`
	IdleSleep         badoption.Duration `json:"idle_sleep,omitempty"`
	ReceiveCeiling    int                `json:"receive_ceiling,omitempty"`
	MaxSendRetries    int                `json:"max_send_retries,omitempty"`
	Socket            SocketConfig       `json:"socket,omitempty"`
}

type SocketConfig struct {
	WriteTimeout      badoption.Duration `json:"write_timeout,omitempty"`
	KeepAliveIdle     badoption.Duration `json:"keep_alive_idle,omitempty"`
	KeepAliveInterval badoption.Duration `json:"keep_alive_interval,omitempty"`
	// ConnectInterval spaces connect attempts; negative disables the limit.
	ConnectInterval   badoption.Duration `json:"connect_interval,omitempty"`
}

func (c SocketConfig) Options() []socket.SystemOption {
	var options []socket.SystemOption
	if c.WriteTimeout > 0 {
		options = append(options, socket.WithWriteTimeout(c.WriteTimeout.Build()))
	}
	if c.KeepAliveIdle > 0 {
		options = append(options, socket.WithKeepAlive(c.KeepAliveIdle.Build(), c.KeepAliveInterval.Build()))
	}
	if c.ConnectInterval != 0 {
		options = append(options, socket.WithConnectRate(c.ConnectInterval.Build(), 1))
	}
	return options
}

// Build validates the config. The returned options log through the default
// stream logger.
func (c StreamConfig) Build() (stream.Options, error) {
	switch {
	case c.SendBufferSize < 0:
		return stream.Options{}, E.New("invalid send_buffer_size: ", c.SendBufferSize)
	case c.ReceiveBufferSize < 0:
		return stream.Options{}, E.New("invalid receive_buffer_size: ", c.ReceiveBufferSize)
	case c.MaxSendSize < 0:
		return stream.Options{}, E.New("invalid max_send_size: ", c.MaxSendSize)
	case c.MaxReceiveSize < 0:
		return stream.Options{}, E.New("invalid max_receive_size: ", c.MaxReceiveSize)
	case c.ConnectTimeout < 0, c.IdleThreshold < 0, c.IdleSleep < 0:
		return stream.Options{}, E.New("durations must not be negative")
	case c.MaxSendRetries < 0:
		return stream.Options{}, E.New("invalid max_send_retries: ", c.MaxSendRetries)
	case c.ReceiveCeiling < 0:
		return stream.Options{}, E.New("invalid receive_ceiling: ", c.ReceiveCeiling)
	}
	return stream.Options{
		SendBufferSize:    c.SendBufferSize,
		ReceiveBufferSize: c.ReceiveBufferSize,
		MaxSendSize:       c.MaxSendSize,
		MaxReceiveSize:    c.MaxReceiveSize,
		ConnectTimeout:    c.ConnectTimeout.Build(),
		IdleThreshold:     c.IdleThreshold.Build(),
		IdleSleep:         c.IdleSleep.Build(),
		ReceiveCeiling:    c.ReceiveCeiling,
		MaxSendRetries:    c.MaxSendRetries,
		Primitives:        socket.NewSystem(c.Socket.Options()...),
	}, nil
}

func Parse(content []byte) (StreamConfig, error) {
	return json.UnmarshalExtended[StreamConfig](content)
}

// Load reads a StreamConfig from path. An empty path yields the defaults.
func Load(path string) (StreamConfig, error) {
	if path == "" {
		return StreamConfig{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return StreamConfig{}, E.Cause(err, "read config")
	}
	config, err := Parse(content)
	if err != nil {
		return StreamConfig{}, E.Cause(err, "decode config ", path)
	}
	return config, nil
}
