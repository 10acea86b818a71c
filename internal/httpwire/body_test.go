package httpwire

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/internal/streamio"
)

func TestBodyStream_ExactContentLength(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go client.Write([]byte("hello world"))

	r := streamio.NewReader(server)
	bs := NewBodyStream(r, 11, time.Second)

	chunk, ok, err := bs.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(chunk))

	_, ok, err = bs.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBodyStream_PartialOnEarlyEOF(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go func() {
		client.Write([]byte("only-part"))
		client.Close()
	}()

	r := streamio.NewReader(server)
	bs := NewBodyStream(r, 100, time.Second)

	chunk, ok, err := bs.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "only-part", string(chunk))

	_, ok, err = bs.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBodyStream_ReadAll(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go client.Write([]byte("abcdef"))

	r := streamio.NewReader(server)
	bs := NewBodyStream(r, 6, time.Second)
	data, err := bs.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
}
