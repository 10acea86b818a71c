package streamio

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteDrain(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	w := NewWriter(server)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	err := w.Write([]byte("hello"), true, time.Second)
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, "hello", string(got))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func TestWriter_CloseIsIdempotentAndSignalsWaitClosed(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	w := NewWriter(server)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case <-w.WaitClosed():
	default:
		t.Fatal("WaitClosed channel not closed")
	}

	err := w.Write([]byte("x"), false, 0)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestWriter_WriteLines(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	readAll := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		readAll <- string(buf)
	}()

	w := NewWriter(server)
	err := w.WriteLines([][]byte{[]byte("HTTP/1.1 200 OK"), []byte("Content-Length: 0")}, time.Second)
	require.NoError(t, err)
	w.Close()

	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n", <-readAll)
}
