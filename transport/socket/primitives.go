package socket

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"

	"golang.org/x/time/rate"
)

type RecvStatus int

const (
	RecvSuccess RecvStatus = iota
	RecvConnectionClosed
	RecvError
)

func (s RecvStatus) String() string {
	switch s {
	case RecvSuccess:
		return "success"
	case RecvConnectionClosed:
		return "connection closed"
	case RecvError:
		return "error"
	default:
		return "RecvStatus(" + strconv.Itoa(int(s)) + ")"
	}
}

// Primitives is the socket layer a stream worker drives.
type Primitives interface {
	ResolveAndConnect(ctx context.Context, host string, port string, timeout time.Duration) (*Socket, error)
	// Send returns nil only if every byte was written.
	Send(socket *Socket, data []byte) error
	// PollReceivable returns the number of bytes readable without blocking,
	// or io.EOF once the peer has closed and nothing is pending.
	PollReceivable(socket *Socket) (int, error)
	Receive(socket *Socket, buffer []byte) (int, RecvStatus)
	Close(socket *Socket) error
}

// PartialWriteError reports a send that failed after some bytes were written.
type PartialWriteError struct {
	Written int
	Cause   error
}

func (e *PartialWriteError) Error() string {
	return "partial write of " + strconv.Itoa(e.Written) + " bytes: " + e.Cause.Error()
}

func (e *PartialWriteError) Unwrap() error {
	return e.Cause
}

var _ Primitives = (*System)(nil)

// System implements Primitives on top of the operating system's TCP stack.
type System struct {
	control      control.Func
	keepAlive    control.Func
	writeTimeout time.Duration
	limiter      *rate.Limiter
}

type SystemOption func(*System)

// WithControl adds a hook run on every dialed socket before connect.
func WithControl(controlFunc control.Func) SystemOption {
	return func(system *System) {
		system.control = control.Append(system.control, controlFunc)
	}
}

// WithKeepAlive tunes TCP keep-alive probes once connected, overriding the runtime defaults.
func WithKeepAlive(idle time.Duration, interval time.Duration) SystemOption {
	return func(system *System) {
		system.keepAlive = control.SetKeepAlivePeriod(idle, interval)
	}
}

// WithWriteTimeout bounds each Send; zero leaves writes unbounded.
func WithWriteTimeout(timeout time.Duration) SystemOption {
	return func(system *System) {
		system.writeTimeout = timeout
	}
}

// WithConnectRate limits connect attempts to every interval, allowing burst at once.
func WithConnectRate(interval time.Duration, burst int) SystemOption {
	return func(system *System) {
		if interval <= 0 {
			system.limiter = nil
			return
		}
		system.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

func NewSystem(options ...SystemOption) *System {
	system := &System{
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
	for _, option := range options {
		option(system)
	}
	return system
}

func (s *System) ResolveAndConnect(ctx context.Context, host string, port string, timeout time.Duration) (*Socket, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if s.limiter != nil {
		err := s.limiter.Wait(ctx)
		if err != nil {
			return nil, E.Cause(err, "wait for connect slot")
		}
	}
	address := net.JoinHostPort(host, port)
	dialer := net.Dialer{Control: s.control}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, E.Cause(err, "connect to ", address)
	}
	err = applyControl(conn, s.keepAlive)
	if err != nil {
		conn.Close()
		return nil, E.Cause(err, "configure ", address)
	}
	return NewSocket(conn), nil
}

func applyControl(conn net.Conn, controlFunc control.Func) error {
	if controlFunc == nil {
		return nil
	}
	syscallConn, isSyscallConn := conn.(syscall.Conn)
	if !isSyscallConn {
		return nil
	}
	rawConn, err := syscallConn.SyscallConn()
	if err != nil {
		return err
	}
	return controlFunc(conn.RemoteAddr().Network(), conn.RemoteAddr().String(), rawConn)
}

func (s *System) Send(socket *Socket, data []byte) error {
	if s.writeTimeout > 0 {
		err := socket.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err != nil {
			return E.Cause(err, "set write deadline")
		}
		defer socket.SetWriteDeadline(time.Time{})
	}
	var written int
	for written < len(data) {
		n, err := socket.Write(data[written:])
		written += n
		if err != nil {
			if written > 0 {
				return &PartialWriteError{Written: written, Cause: err}
			}
			return E.Cause(err, "send")
		}
	}
	return nil
}

func (s *System) PollReceivable(socket *Socket) (int, error) {
	return socket.Receivable()
}

func (s *System) Receive(socket *Socket, buffer []byte) (int, RecvStatus) {
	n, err := socket.Read(buffer)
	switch {
	case err == nil:
		return n, RecvSuccess
	case errors.Is(err, io.EOF) || E.IsClosed(err):
		return n, RecvConnectionClosed
	case n > 0:
		return n, RecvSuccess
	default:
		return 0, RecvError
	}
}

func (s *System) Close(socket *Socket) error {
	return socket.Close()
}
