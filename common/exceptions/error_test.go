package exceptions

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCause(t *testing.T) {
	err := Cause(io.EOF, "read ", 3, " bytes")
	require.Equal(t, "read 3 bytes: EOF", err.Error())
	require.ErrorIs(t, err, io.EOF)
	require.Panics(t, func() {
		_ = Cause(nil, "nothing")
	})
}

func TestExtend(t *testing.T) {
	sentinel := New("sentinel")
	require.Same(t, sentinel, Extend(sentinel, nil))
	err := Extend(sentinel, syscall.EPIPE)
	require.ErrorIs(t, err, sentinel)
	require.ErrorIs(t, err, syscall.EPIPE)
	require.Equal(t, "sentinel: broken pipe", err.Error())
}

func TestErrors(t *testing.T) {
	require.NoError(t, Errors(nil, nil))
	require.Same(t, io.EOF, Errors(nil, io.EOF))
	err := Errors(io.EOF, os.ErrClosed)
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestIsClosed(t *testing.T) {
	require.True(t, IsClosed(io.EOF))
	require.True(t, IsClosed(Cause(net.ErrClosed, "accept")))
	require.True(t, IsClosed(&os.SyscallError{Syscall: "write", Err: syscall.ECONNRESET}))
	require.False(t, IsClosed(errors.New("other")))
	require.False(t, IsClosed(nil))
}

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(Cause(timeoutError{}, "dial")))
	require.True(t, IsTimeout(os.ErrDeadlineExceeded))
	require.False(t, IsTimeout(io.EOF))
}
