package socket

import (
	"bufio"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

// peekTimeout bounds the read-ahead probe used on connections without a file descriptor.
const peekTimeout = time.Millisecond

// Socket is a connected stream. Connections exposing a file descriptor are
// polled with the kernel's pending byte count; others go through a
// read-ahead reader.
type Socket struct {
	conn      net.Conn
	raw       syscall.RawConn
	reader    *bufio.Reader
	closeOnce sync.Once
	closeErr  error
}

func NewSocket(conn net.Conn) *Socket {
	socket := &Socket{conn: conn}
	if syscallConn, isSyscallConn := conn.(syscall.Conn); isSyscallConn && pollSupported {
		if rawConn, err := syscallConn.SyscallConn(); err == nil {
			socket.raw = rawConn
		}
	}
	if socket.raw == nil {
		socket.reader = bufio.NewReader(conn)
	}
	return socket
}

func (s *Socket) Conn() net.Conn {
	return s.conn
}

func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Receivable returns how many bytes can be read without blocking. io.EOF
// means the peer closed the stream and nothing is left to read.
func (s *Socket) Receivable() (int, error) {
	if s.raw != nil {
		return pollRaw(s.raw)
	}
	if buffered := s.reader.Buffered(); buffered > 0 {
		return buffered, nil
	}
	err := s.conn.SetReadDeadline(time.Now().Add(peekTimeout))
	if err != nil {
		if E.IsClosed(err) {
			return 0, io.EOF
		}
		return 0, err
	}
	_, err = s.reader.Peek(1)
	s.conn.SetReadDeadline(time.Time{})
	if err != nil {
		if E.IsTimeout(err) {
			return 0, nil
		}
		if E.IsClosed(err) {
			return 0, io.EOF
		}
		return 0, err
	}
	return s.reader.Buffered(), nil
}

func (s *Socket) Read(p []byte) (int, error) {
	if s.reader != nil {
		return s.reader.Read(p)
	}
	return s.conn.Read(p)
}

func (s *Socket) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

func (s *Socket) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Close closes the underlying connection once; later calls return the first result.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
