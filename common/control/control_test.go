package control

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	var calls []string
	first := func(network, address string, conn syscall.RawConn) error {
		calls = append(calls, "first")
		return nil
	}
	second := func(network, address string, conn syscall.RawConn) error {
		calls = append(calls, "second")
		return nil
	}
	require.Nil(t, Append(nil, nil))
	require.NotNil(t, Append(first, nil))
	require.NotNil(t, Append(nil, second))
	require.NoError(t, Append(first, second)("tcp", "", nil))
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestAppendStopsOnError(t *testing.T) {
	failure := errors.New("failure")
	failing := func(network, address string, conn syscall.RawConn) error {
		return failure
	}
	var called bool
	next := func(network, address string, conn syscall.RawConn) error {
		called = true
		return nil
	}
	require.ErrorIs(t, Append(failing, next)("tcp", "", nil), failure)
	require.False(t, called)
}

func TestKeepAliveOnDial(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			conn.Close()
		}
	}()
	dialer := net.Dialer{Control: SetKeepAlivePeriod(30*time.Second, 10*time.Second)}
	conn, err := dialer.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	conn.Close()
}

func TestReuseAddrListen(t *testing.T) {
	listenConfig := net.ListenConfig{Control: ReuseAddr()}
	listener, err := listenConfig.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())
	listener, err = listenConfig.Listen(context.Background(), "tcp", address)
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}
