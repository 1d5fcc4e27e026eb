package socket

import (
	"context"
	"net"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
)

// Handler receives every accepted socket. It owns the socket from then on.
type Handler interface {
	NewSocket(ctx context.Context, socket *Socket) error
	HandleError(err error)
}

type Listener struct {
	ctx       context.Context
	listen    string
	handler   Handler
	control   control.Func
	keepAlive control.Func
	logger    log.Logger
	net.Listener
}

// Error carries a handler failure together with the socket it concerned.
type Error struct {
	Socket *Socket
	Cause  error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Close() error {
	return e.Socket.Close()
}

func NewListener(ctx context.Context, listen string, handler Handler, options ...ListenerOption) *Listener {
	listener := &Listener{
		ctx:     ctx,
		listen:  listen,
		handler: handler,
		logger:  log.NewLogger("listener"),
	}
	for _, option := range options {
		option(listener)
	}
	return listener
}

func (l *Listener) Start() error {
	listenConfig := net.ListenConfig{Control: l.control}
	tcpListener, err := listenConfig.Listen(l.ctx, "tcp", l.listen)
	if err != nil {
		return E.Cause(err, "listen ", l.listen)
	}
	l.Listener = tcpListener
	l.logger.Debug("listening at ", tcpListener.Addr())
	go l.loop()
	return nil
}

func (l *Listener) Close() error {
	if l == nil || l.Listener == nil {
		return nil
	}
	return l.Listener.Close()
}

func (l *Listener) loop() {
	for {
		conn, err := l.Accept()
		if err != nil {
			if !E.IsClosed(err) {
				l.handler.HandleError(E.Cause(err, "tcp listener closed"))
			}
			l.Close()
			return
		}
		err = applyControl(conn, l.keepAlive)
		if err != nil {
			l.logger.Warn("configure accepted connection: ", err)
		}
		socket := NewSocket(conn)
		l.logger.Debug("accepted ", conn.RemoteAddr())
		go func() {
			hErr := l.handler.NewSocket(l.ctx, socket)
			if hErr != nil {
				l.handler.HandleError(&Error{Socket: socket, Cause: hErr})
			}
		}()
	}
}
