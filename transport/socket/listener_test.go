package socket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testHandler struct {
	sockets chan *Socket
	errors  chan error
	fail    error
}

func (h *testHandler) NewSocket(ctx context.Context, socket *Socket) error {
	h.sockets <- socket
	return h.fail
}

func (h *testHandler) HandleError(err error) {
	h.errors <- err
}

func TestListenerAccept(t *testing.T) {
	handler := &testHandler{sockets: make(chan *Socket, 1), errors: make(chan error, 1)}
	listener := NewListener(context.Background(), "127.0.0.1:0", handler, WithListenKeepAlive(30*time.Second, 10*time.Second))
	require.NoError(t, listener.Start())
	defer listener.Close()

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case socket := <-handler.sockets:
		require.Equal(t, conn.LocalAddr().String(), socket.RemoteAddr().String())
		socket.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
}

func TestListenerHandlerError(t *testing.T) {
	handler := &testHandler{
		sockets: make(chan *Socket, 1),
		errors:  make(chan error, 1),
		fail:    net.ErrClosed,
	}
	listener := NewListener(context.Background(), "127.0.0.1:0", handler)
	require.NoError(t, listener.Start())
	defer listener.Close()

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err = <-handler.errors:
		require.ErrorIs(t, err, net.ErrClosed)
		var socketErr *Error
		require.ErrorAs(t, err, &socketErr)
		require.NoError(t, socketErr.Close())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
}

func TestListenerCloseStopsLoop(t *testing.T) {
	handler := &testHandler{sockets: make(chan *Socket, 1), errors: make(chan error, 1)}
	listener := NewListener(context.Background(), "127.0.0.1:0", handler)
	require.NoError(t, listener.Start())
	address := listener.Addr().String()
	require.NoError(t, listener.Close())
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", address)
		if err == nil {
			conn.Close()
		}
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
	select {
	case err := <-handler.errors:
		t.Fatal("unexpected error: ", err)
	default:
	}
	var nilListener *Listener
	require.NoError(t, nilListener.Close())
}
