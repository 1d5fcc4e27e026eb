// Package stream pumps a single TCP connection on a background goroutine.
//
// A Worker owns one socket and two single-slot buffers. Callers hand over
// outbound payloads with QueueSend and collect inbound data with
// TakeReceived; neither call waits for network I/O. The worker goroutine
// connects (client mode) or adopts an accepted socket (server mode), then
// alternates between flushing the send slot and filling the receive slot,
// sleeping briefly when the connection has been idle for a while.
//
// Lock order inside the worker goroutine is always the socket first, then at
// most one buffer. Callers only ever take a buffer lock.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sagernet/sing-stream/common/atomic"
	"github.com/sagernet/sing-stream/common/buf"
	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
	"github.com/sagernet/sing-stream/common/timer"
	"github.com/sagernet/sing-stream/transport/socket"
)

type Worker struct {
	options    Options
	primitives socket.Primitives
	logger     log.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	hostname       string
	port           string
	connectTimeout time.Duration

	sendBuffer *buf.Growable
	recvBuffer *buf.Growable
	socket     socket.Guarded

	state         atomic.Int32
	started       atomic.Bool
	closed        atomic.Bool
	connected     atomic.Bool
	failed        atomic.Bool
	stopRequested atomic.Bool
	err           atomic.TypedValue[error]
	done          chan struct{}
	closeOnce     sync.Once
	closeErr      error

	// owned by the worker goroutine
	activity     timer.Timer
	sendFailures int
	sendScratch  []byte
}

func NewWorker(options Options) (*Worker, error) {
	options, err := options.normalize()
	if err != nil {
		return nil, E.Cause(err, "invalid stream options")
	}
	sendBuffer, err := buf.NewGrowable(options.SendBufferSize, options.MaxSendSize)
	if err != nil {
		return nil, E.Cause(err, "create send buffer")
	}
	recvBuffer, err := buf.NewGrowable(options.ReceiveBufferSize, options.MaxReceiveSize)
	if err != nil {
		sendBuffer.Release()
		return nil, E.Cause(err, "create receive buffer")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		options:    options,
		primitives: options.Primitives,
		logger:     options.Logger,
		ctx:        ctx,
		cancel:     cancel,
		sendBuffer: sendBuffer,
		recvBuffer: recvBuffer,
		done:       make(chan struct{}),
	}, nil
}

// Start connects to host:port in the background. A timeout of zero uses the
// configured connect timeout. Starting a started worker is ignored.
func (w *Worker) Start(hostname string, port string, timeout time.Duration) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	if timeout <= 0 {
		timeout = w.options.ConnectTimeout
	}
	w.hostname = hostname
	w.port = port
	w.connectTimeout = timeout
	w.state.Store(int32(StateConnecting))
	go w.loop()
	return nil
}

// StartAccepted runs the worker on an already connected socket. Starting a
// started worker is ignored and leaves sock with the caller.
func (w *Worker) StartAccepted(sock *socket.Socket) error {
	if sock == nil {
		return E.New("missing accepted socket")
	}
	if w.closed.Load() {
		return ErrClosed
	}
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	w.socket.Set(sock, false)
	w.state.Store(int32(StateConnected))
	w.connected.Store(true)
	go w.loop()
	return nil
}

// QueueSend hands data to the worker. It fails if the worker is not
// connected or stopping, if data is empty or larger than the send limit, or
// if the previous payload has not been sent yet.
func (w *Worker) QueueSend(data []byte) bool {
	return w.queueSend(data, false)
}

// QueueSendOverwrite is QueueSend, except that a payload still waiting to be
// sent is replaced entirely instead of causing a failure. A payload the
// worker is already writing is not recalled; the replacement follows it.
func (w *Worker) QueueSendOverwrite(data []byte) bool {
	return w.queueSend(data, true)
}

func (w *Worker) queueSend(data []byte, overwrite bool) bool {
	if !w.connected.Load() || w.stopRequested.Load() || len(data) == 0 {
		return false
	}
	if len(data) > w.sendBuffer.HardMax() {
		w.logger.Debug("rejected ", len(data), " byte payload over send limit ", w.sendBuffer.HardMax())
		return false
	}
	if overwrite {
		return w.sendBuffer.CopyFromOverwrite(data)
	}
	if w.sendBuffer.DataSize() > 0 {
		return false
	}
	return w.sendBuffer.CopyFrom(data)
}

// TakeReceived returns the received data and empties the receive slot. It
// returns nil if nothing arrived since the last call. Data received before
// the worker terminated stays available until Close.
func (w *Worker) TakeReceived() []byte {
	if w.recvBuffer.DataSize() == 0 {
		return nil
	}
	return w.recvBuffer.Take()
}

// TakeUnsent returns the payload still queued when the worker terminated and
// empties the send slot. It returns nil while the worker runs.
func (w *Worker) TakeUnsent() []byte {
	if w.State() != StateTerminated || w.sendBuffer.DataSize() == 0 {
		return nil
	}
	return w.sendBuffer.Take()
}

// MaxSendSize is the largest payload QueueSend accepts.
func (w *Worker) MaxSendSize() int {
	return w.sendBuffer.HardMax()
}

func (w *Worker) IsConnected() bool {
	return w.connected.Load()
}

// HasFailed reports a connect timeout. It never resets.
func (w *Worker) HasFailed() bool {
	return w.failed.Load()
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Err returns why the worker terminated, or nil while it runs.
func (w *Worker) Err() error {
	return w.err.Load()
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Stop asks the worker to terminate after its current iteration. It does not wait.
func (w *Worker) Stop() {
	w.stopRequested.Store(true)
	w.cancel()
}

// Close stops the worker, waits for its goroutine, then closes the socket
// and releases both buffers.
func (w *Worker) Close() error {
	w.closed.Store(true)
	w.Stop()
	if w.started.CompareAndSwap(false, true) {
		w.state.Store(int32(StateTerminated))
		w.err.CompareAndSwapEmpty(ErrClosed)
		close(w.done)
	}
	<-w.done
	w.closeOnce.Do(func() {
		sock, unlock := w.socket.Acquire()
		if sock != nil {
			w.closeErr = w.primitives.Close(sock)
		}
		unlock()
		w.sendBuffer.Release()
		w.recvBuffer.Release()
	})
	return w.closeErr
}

func (w *Worker) loop() {
	defer close(w.done)
	if w.State() == StateConnecting && !w.connect() {
		return
	}
	w.logger.Debug("stream started")
	w.activity.Start()
	for {
		err := w.iterate()
		if err == nil && w.stopRequested.Load() {
			err = ErrStopped
		}
		if err != nil {
			w.terminate(err)
			return
		}
	}
}

func (w *Worker) connect() bool {
	w.logger.Debug("connecting to ", w.hostname, ":", w.port)
	connectTimer := timer.Started()
	var lastErr error
	for {
		if w.stopRequested.Load() {
			w.terminate(ErrStopped)
			return false
		}
		remaining := connectTimer.Remaining(w.connectTimeout)
		if remaining <= 0 {
			break
		}
		sock, err := w.primitives.ResolveAndConnect(w.ctx, w.hostname, w.port, remaining)
		if err == nil && sock == nil {
			err = E.New("connect returned no socket")
		}
		if err == nil {
			w.socket.Set(sock, false)
			w.connected.Store(true)
			w.state.Store(int32(StateConnected))
			w.logger.Info("connected to ", sock.RemoteAddr())
			return true
		}
		lastErr = err
		w.logger.Trace("connect attempt failed: ", err)
	}
	if w.stopRequested.Load() {
		w.terminate(ErrStopped)
		return false
	}
	w.failed.Store(true)
	w.terminate(E.Extend(ErrConnectTimeout, lastErr))
	return false
}

func (w *Worker) terminate(err error) {
	w.err.Store(err)
	w.connected.Store(false)
	w.state.Store(int32(StateTerminated))
	switch {
	case errors.Is(err, ErrStopped), errors.Is(err, ErrPeerClosed):
		w.logger.Debug("stream terminated: ", err)
	default:
		w.logger.Warn("stream terminated: ", err)
	}
}

func (w *Worker) iterate() error {
	if w.sendBuffer.DataSize() > 0 {
		retry, err := w.flushSend()
		if err != nil {
			return err
		}
		if retry {
			w.idleWait()
			return nil
		}
	} else if w.recvBuffer.DataSize() == 0 {
		err := w.fillReceive()
		if err != nil {
			return err
		}
	}
	if w.activity.Elapsed() > w.options.IdleThreshold {
		w.idleWait()
	}
	return nil
}

func (w *Worker) flushSend() (retry bool, err error) {
	sock, unlockSocket := w.socket.Acquire()
	defer unlockSocket()
	access, unlockBuffer := w.sendBuffer.Acquire()
	w.sendScratch = append(w.sendScratch[:0], access.Data()...)
	generation := access.Generation()
	unlockBuffer()
	if len(w.sendScratch) == 0 {
		return false, nil
	}
	err = w.primitives.Send(sock, w.sendScratch)
	if err == nil {
		access, unlockBuffer = w.sendBuffer.Acquire()
		// an overwrite during the send leaves its payload pending
		if access.Generation() == generation {
			access.SetDataSize(0)
		}
		unlockBuffer()
		w.activity.Start()
		w.sendFailures = 0
		return false, nil
	}
	var partialErr *socket.PartialWriteError
	switch {
	case errors.As(err, &partialErr):
		// the peer has seen part of the payload, resending would corrupt the stream
		return false, E.Extend(ErrSendFailed, err)
	case E.IsClosed(err):
		return false, E.Extend(ErrPeerClosed, err)
	}
	w.sendFailures++
	if w.options.MaxSendRetries > 0 && w.sendFailures > w.options.MaxSendRetries {
		return false, E.Extend(ErrSendFailed, E.Cause(err, "gave up after ", w.sendFailures, " attempts"))
	}
	w.logger.Debug("send failed, retrying: ", err)
	return true, nil
}

func (w *Worker) fillReceive() error {
	sock, unlockSocket := w.socket.Acquire()
	defer unlockSocket()
	available, err := w.primitives.PollReceivable(sock)
	if err != nil {
		if errors.Is(err, io.EOF) || E.IsClosed(err) {
			return E.Extend(ErrPeerClosed, err)
		}
		w.logger.Trace("poll receivable: ", err)
		return nil
	}
	if available <= 0 {
		return nil
	}
	if available > w.options.ReceiveCeiling {
		return E.Extend(ErrTransferTooLarge, E.New("peer has ", available, " bytes pending, ceiling is ", w.options.ReceiveCeiling))
	}
	access, unlockBuffer := w.recvBuffer.Acquire()
	defer unlockBuffer()
	if !access.Reserve(available) {
		return E.Extend(ErrTransferTooLarge, E.New("peer has ", available, " bytes pending, receive limit is ", access.HardMax()))
	}
	n, status := w.primitives.Receive(sock, access.Bytes()[:available])
	if n > 0 {
		access.SetDataSize(n)
		w.activity.Start()
	}
	switch {
	case status == socket.RecvConnectionClosed:
		return ErrPeerClosed
	case status == socket.RecvError && n == 0:
		w.logger.Trace("receive failed, retrying")
		return nil
	case n == 0:
		return ErrPeerClosed
	}
	return nil
}

func (w *Worker) idleWait() {
	idleTimer := time.NewTimer(w.options.IdleSleep)
	defer idleTimer.Stop()
	select {
	case <-idleTimer.C:
	case <-w.ctx.Done():
	}
}
