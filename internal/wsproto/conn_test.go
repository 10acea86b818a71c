package wsproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/internal/streamio"
)

func newTestConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	c := NewConn(streamio.NewReader(server), streamio.NewWriter(server), Negotiated{})
	c.Open()
	return c, client
}

func TestConn_ReadMessage_AssemblesFragments(t *testing.T) {
	c, client := newTestConn(t)

	go func() {
		client.Write([]byte{0x01, 0x82, 0, 0, 0, 0, 'h', 'i'}) // TEXT, FIN=0, masked with a zero key
		client.Write([]byte{0x80, 0x83, 0, 0, 0, 0, 'y', 'o', '!'})
	}()

	msg, err := c.ReadMessage(time.Second)
	require.NoError(t, err)
	assert.Equal(t, OpText, msg.Opcode)
	assert.Equal(t, "hiyo!", string(msg.Payload))
}

func TestConn_ReadMessage_AutoPong(t *testing.T) {
	c, client := newTestConn(t)

	go client.Write(maskedClientFrame(OpPing, []byte("ping")))

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	go func() {
		c.ReadMessage(time.Second)
	}()

	select {
	case got := <-done:
		require.True(t, len(got) >= 2)
		assert.Equal(t, OpPong, Opcode(got[0]&0x0F))
	case <-time.After(time.Second):
		t.Fatal("expected automatic PONG")
	}
}

func TestConn_Close_TransitionsOpenToClosing(t *testing.T) {
	c, _ := newTestConn(t)
	assert.Equal(t, StateOpen, c.State())

	go func() {
		_ = c.Close(CloseNormal, "bye", time.Second)
	}()

	require.Eventually(t, func() bool { return c.State() == StateClosing }, time.Second, time.Millisecond)
}

func TestConn_ReadMessage_PeerCloseTransitionsToClosed(t *testing.T) {
	c, client := newTestConn(t)

	payload := BuildClosePayload(CloseNormal, "done")
	frame := append([]byte{0x88, byte(0x80 | len(payload)), 0, 0, 0, 0}, payload...)
	go client.Write(frame)

	msg, err := c.ReadMessage(time.Second)
	require.NoError(t, err)
	assert.Equal(t, OpClose, msg.Opcode)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_WriteMessage_RejectedWhenNotOpen(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := NewConn(streamio.NewReader(server), streamio.NewWriter(server), Negotiated{})

	err := c.WriteMessage(OpText, []byte("x"), time.Second)
	assert.Error(t, err)
}
