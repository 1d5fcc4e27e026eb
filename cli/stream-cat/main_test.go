package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitPayload(t *testing.T) {
	require.Nil(t, splitPayload(nil, 4))
	require.Equal(t, [][]byte{[]byte("abc")}, splitPayload([]byte("abc"), 4))
	require.Equal(t, [][]byte{[]byte("abcd")}, splitPayload([]byte("abcd"), 4))
	require.Equal(t, [][]byte{[]byte("abcd"), []byte("ef")}, splitPayload([]byte("abcdef"), 4))

	line := bytes.Repeat([]byte{'x'}, 2500)
	chunks := splitPayload(line, 1024)
	require.Len(t, chunks, 3)
	require.Equal(t, line, bytes.Join(chunks, nil))
}

func TestReceiveIfIdle(t *testing.T) {
	lines := make(chan []byte)
	require.Equal(t, lines, receiveIfIdle(lines, nil))
	require.Nil(t, receiveIfIdle(lines, [][]byte{[]byte("waiting")}))
}
