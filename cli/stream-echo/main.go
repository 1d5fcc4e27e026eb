package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagernet/sing-stream"
	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
	"github.com/sagernet/sing-stream/conf"
	"github.com/sagernet/sing-stream/transport/socket"
	"github.com/sagernet/sing-stream/transport/stream"
	"github.com/spf13/cobra"
)

var logger = log.NewLogger("stream-echo")

var (
	verbose    bool
	configPath string
	reuseAddr  bool
)

func main() {
	command := &cobra.Command{
		Use:     "stream-echo <listen>",
		Short:   "Echo server built on stream workers.",
		Example: "stream-echo 127.0.0.1:7000",
		Version: sing.Version,
		Args:    cobra.ExactArgs(1),
		Run:     run,
	}
	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose mode")
	command.Flags().StringVarP(&configPath, "config", "c", "", "stream config path")
	command.Flags().BoolVar(&reuseAddr, "reuse-addr", false, "set SO_REUSEADDR on the listener")
	if err := command.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func run(cmd *cobra.Command, args []string) {
	log.SetVerbose(verbose)

	config, err := conf.Load(configPath)
	if err != nil {
		logger.Fatal(err)
	}
	options, err := config.Build()
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := &echoServer{options: options}
	var listenerOptions []socket.ListenerOption
	if reuseAddr {
		listenerOptions = append(listenerOptions, socket.WithListenControl(control.ReuseAddr()))
	}
	if config.Socket.KeepAliveIdle > 0 {
		listenerOptions = append(listenerOptions, socket.WithListenKeepAlive(config.Socket.KeepAliveIdle.Build(), config.Socket.KeepAliveInterval.Build()))
	}
	listener := socket.NewListener(ctx, args[0], server, listenerOptions...)
	err = listener.Start()
	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("echo server started at ", listener.Addr())

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	<-osSignals

	cancel()
	listener.Close()
}

type echoServer struct {
	options stream.Options
}

func (s *echoServer) NewSocket(ctx context.Context, sock *socket.Socket) error {
	logger.Info("accepted ", sock.RemoteAddr())
	worker, err := stream.NewWorker(s.options)
	if err != nil {
		sock.Close()
		return err
	}
	defer worker.Close()
	err = worker.StartAccepted(sock)
	if err != nil {
		sock.Close()
		return err
	}
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-worker.Done():
			// a half-closed peer still reads: echo what arrived before the close
			drainErr := drain(sock, worker.TakeUnsent(), pending, worker.TakeReceived())
			if drainErr != nil {
				logger.Debug("drain ", sock.RemoteAddr(), ": ", drainErr)
			}
			if errors.Is(worker.Err(), stream.ErrPeerClosed) {
				logger.Info("closed ", sock.RemoteAddr())
				return nil
			}
			return worker.Err()
		case <-ticker.C:
		}
		if pending == nil {
			pending = worker.TakeReceived()
		}
		if pending != nil && worker.QueueSend(pending) {
			logger.Debug("echo ", len(pending), " bytes to ", sock.RemoteAddr())
			pending = nil
		}
	}
}

// drain writes payloads straight to sock. Only valid once the worker has exited.
func drain(sock *socket.Socket, payloads ...[]byte) error {
	for _, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		_, err := sock.Write(payload)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *echoServer) HandleError(err error) {
	if E.IsClosed(err) {
		logger.Debug(err)
		return
	}
	logger.Error(err)
}
