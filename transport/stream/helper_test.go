package stream

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sagernet/sing-stream/transport/socket"

	"github.com/stretchr/testify/require"
)

func TCPPipe(t *testing.T) (net.Conn, net.Conn) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	clientConn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	serverConn, loaded := <-accepted
	require.True(t, loaded)
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	return serverConn, clientConn
}

func waitDone(t *testing.T, worker *Worker) {
	select {
	case <-worker.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for worker to terminate")
	}
}

func newTestWorker(t *testing.T, options Options) *Worker {
	worker, err := NewWorker(options)
	require.NoError(t, err)
	t.Cleanup(func() {
		worker.Close()
	})
	return worker
}

// fakePrimitives scripts the socket layer for conditions a real peer cannot
// produce on demand.
type fakePrimitives struct {
	access      sync.Mutex
	conn        net.Conn
	sendErr     error
	sent        [][]byte
	sendCalls   int
	pending     [][]byte
	announce    int
	pollCalls   int
	recvCalls   int
	closeCalls  int
	connectErr  error
	connectCall int
	timeouts    []time.Duration
	// sendGate, when set, parks every Send until it is closed
	sendGate    chan struct{}
	sendEntered chan struct{}
}

func newFakePrimitives(t *testing.T) *fakePrimitives {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	return &fakePrimitives{conn: clientConn}
}

func (f *fakePrimitives) newSocket() *socket.Socket {
	return socket.NewSocket(f.conn)
}

func (f *fakePrimitives) ResolveAndConnect(ctx context.Context, host string, port string, timeout time.Duration) (*socket.Socket, error) {
	f.access.Lock()
	defer f.access.Unlock()
	f.connectCall++
	f.timeouts = append(f.timeouts, timeout)
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.newSocket(), nil
}

func (f *fakePrimitives) Send(sock *socket.Socket, data []byte) error {
	f.access.Lock()
	gate, entered := f.sendGate, f.sendEntered
	f.access.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	f.access.Lock()
	defer f.access.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

// PollReceivable reports announce when set, otherwise the size of the next pending chunk.
func (f *fakePrimitives) PollReceivable(sock *socket.Socket) (int, error) {
	f.access.Lock()
	defer f.access.Unlock()
	f.pollCalls++
	if f.announce > 0 {
		return f.announce, nil
	}
	if len(f.pending) == 0 {
		return 0, nil
	}
	return len(f.pending[0]), nil
}

func (f *fakePrimitives) Receive(sock *socket.Socket, buffer []byte) (int, socket.RecvStatus) {
	f.access.Lock()
	defer f.access.Unlock()
	f.recvCalls++
	if len(f.pending) == 0 {
		return 0, socket.RecvError
	}
	n := copy(buffer, f.pending[0])
	f.pending = f.pending[1:]
	return n, socket.RecvSuccess
}

func (f *fakePrimitives) Close(sock *socket.Socket) error {
	f.access.Lock()
	defer f.access.Unlock()
	f.closeCalls++
	return sock.Close()
}

func (f *fakePrimitives) setSendErr(err error) {
	f.access.Lock()
	defer f.access.Unlock()
	f.sendErr = err
}

func (f *fakePrimitives) connectTimeouts() []time.Duration {
	f.access.Lock()
	defer f.access.Unlock()
	return append([]time.Duration(nil), f.timeouts...)
}

func (f *fakePrimitives) sentPayloads() [][]byte {
	f.access.Lock()
	defer f.access.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakePrimitives) counters() (sendCalls int, pollCalls int, recvCalls int, closeCalls int) {
	f.access.Lock()
	defer f.access.Unlock()
	return f.sendCalls, f.pollCalls, f.recvCalls, f.closeCalls
}
