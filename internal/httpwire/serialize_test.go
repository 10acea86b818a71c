package httpwire

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/streamio"
)

func TestWritePreamble_FillsFraming(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	out := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		out <- string(buf)
	}()

	h := headerutil.New()
	EnsureFraming(h, 2, true)

	w := streamio.NewWriter(server)
	require.NoError(t, WritePreamble(w, "HTTP/1.1", 200, h, time.Second))
	require.NoError(t, WriteFixedBody(w, []byte("hi"), time.Second))
	w.Close()

	got := <-out
	assert.Contains(t, got, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, got, "Content-Length: 2\r\n")
	assert.Contains(t, got, "\r\n\r\nhi")
}

func TestEnsureFraming_ChunkedWhenUnknown(t *testing.T) {
	h := headerutil.New()
	EnsureFraming(h, 0, false)
	v, ok := h.Get("Transfer-Encoding")
	require.True(t, ok)
	assert.Equal(t, "chunked", v)
}

func TestWriteChunk_Format(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	out := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(client)
		out <- string(buf)
	}()

	w := streamio.NewWriter(server)
	require.NoError(t, WriteChunk(w, []byte("abc"), time.Second))
	require.NoError(t, WriteLastChunk(w, time.Second))
	w.Close()

	assert.Equal(t, "3\r\nabc\r\n0\r\n\r\n", <-out)
}
