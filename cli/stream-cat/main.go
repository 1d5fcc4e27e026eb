package main

import (
	"bufio"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagernet/sing-stream"
	"github.com/sagernet/sing-stream/common/log"
	"github.com/sagernet/sing-stream/conf"
	"github.com/sagernet/sing-stream/transport/stream"
	"github.com/spf13/cobra"
)

var logger = log.NewLogger("stream-cat")

var (
	verbose        bool
	configPath     string
	connectTimeout time.Duration
)

func main() {
	command := &cobra.Command{
		Use:     "stream-cat <host> <port>",
		Short:   "Send stdin lines over a stream worker and print what comes back.",
		Example: "stream-cat 127.0.0.1 7000",
		Version: sing.Version,
		Args:    cobra.ExactArgs(2),
		Run:     run,
	}
	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose mode")
	command.Flags().StringVarP(&configPath, "config", "c", "", "stream config path")
	command.Flags().DurationVarP(&connectTimeout, "timeout", "t", 0, "connect timeout, overrides the config")
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
	worker, err := stream.NewWorker(options)
	if err != nil {
		logger.Fatal(err)
	}
	defer worker.Close()
	err = worker.Start(args[0], args[1], connectTimeout)
	if err != nil {
		logger.Fatal(err)
	}

	lines := make(chan []byte)
	go readLines(lines)
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	var pending [][]byte
	for {
		select {
		case <-osSignals:
			return
		case <-worker.Done():
			printReceived(worker)
			if err = worker.Err(); !errors.Is(err, stream.ErrPeerClosed) {
				logger.Error(err)
			}
			return
		case line, loaded := <-receiveIfIdle(lines, pending):
			if !loaded {
				lines = nil
				continue
			}
			pending = splitPayload(line, worker.MaxSendSize())
			if len(pending) > 1 {
				logger.Debug("split ", len(line), " byte line into ", len(pending), " payloads")
			}
		case <-ticker.C:
		}
		if len(pending) > 0 && worker.QueueSend(pending[0]) {
			pending = pending[1:]
		}
		printReceived(worker)
	}
}

// receiveIfIdle disables the line case while part of a line still waits to be queued.
func receiveIfIdle(lines chan []byte, pending [][]byte) chan []byte {
	if len(pending) > 0 {
		return nil
	}
	return lines
}

// splitPayload cuts data into chunks QueueSend accepts.
func splitPayload(data []byte, limit int) [][]byte {
	var chunks [][]byte
	for len(data) > limit {
		chunks = append(chunks, data[:limit])
		data = data[limit:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}

func readLines(lines chan<- []byte) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		lines <- append(line, '\n')
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("read stdin: ", err)
	}
}

func printReceived(worker *stream.Worker) {
	data := worker.TakeReceived()
	if data != nil {
		os.Stdout.Write(data)
	}
}
