package wsproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/internal/streamio"
)

func maskedClientFrame(opcode Opcode, payload []byte) []byte {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	masked := append([]byte(nil), payload...)
	applyMask(masked, key)

	buf := []byte{0x80 | byte(opcode)}
	n := len(payload)
	switch {
	case n < 126:
		buf = append(buf, 0x80|byte(n))
	default:
		panic("test helper only supports short payloads")
	}
	buf = append(buf, key[:]...)
	buf = append(buf, masked...)
	return buf
}

func TestReadFrame_UnmasksClientPayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go client.Write(maskedClientFrame(OpText, []byte("hello")))

	r := streamio.NewReader(server)
	f, err := ReadFrame(r, time.Second)
	require.NoError(t, err)
	assert.True(t, f.Fin)
	assert.Equal(t, OpText, f.Opcode)
	assert.Equal(t, "hello", string(f.Payload))
}

func TestReadFrame_RejectsUnmaskedClientFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	go client.Write([]byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'})

	r := streamio.NewReader(server)
	_, err := ReadFrame(r, time.Second)
	require.Error(t, err)
	var pe *ErrProtocol
	require.ErrorAs(t, err, &pe)
}

func TestReadFrame_RejectsOversizedControlFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	payload := make([]byte, 126)
	go client.Write(maskedClientFrameLong(OpPing, payload))

	r := streamio.NewReader(server)
	_, err := ReadFrame(r, time.Second)
	require.Error(t, err)
}

func maskedClientFrameLong(opcode Opcode, payload []byte) []byte {
	key := [4]byte{1, 2, 3, 4}
	masked := append([]byte(nil), payload...)
	applyMask(masked, key)
	buf := []byte{0x80 | byte(opcode), 0x80 | 126, byte(len(payload) >> 8), byte(len(payload))}
	buf = append(buf, key[:]...)
	buf = append(buf, masked...)
	return buf
}

func TestWriteFrame_NeverMasksServerFrames(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	w := streamio.NewWriter(server)
	require.NoError(t, WriteFrame(w, Frame{Fin: true, Opcode: OpText, Payload: []byte("hi")}, time.Second))

	got := <-done
	assert.Equal(t, byte(0x80|byte(OpText)), got[0])
	assert.Equal(t, byte(2), got[1]&0x7F)
	assert.Equal(t, byte(0), got[1]&0x80) // mask bit clear
}

// feedOneByteAtATime hands data to r one byte per underlying Read, the way a
// TCP-segmented frame arrives: each bufio.Reader.Read call is satisfied by
// at most one conn.Read, so a 2/4/8-byte field can legitimately come back
// split across several ReadN calls.
func feedOneByteAtATime(r *streamio.Reader, data []byte) {
	for _, b := range data {
		r.Feed([]byte{b})
	}
}

func TestReadFrame_SurvivesSegmentedHeaderAndExtendedLength(t *testing.T) {
	payload := make([]byte, 200) // forces the 16-bit extended length form
	for i := range payload {
		payload[i] = byte(i)
	}
	key := [4]byte{9, 8, 7, 6}
	masked := append([]byte(nil), payload...)
	applyMask(masked, key)

	frame := []byte{0x80 | byte(OpBinary), 0x80 | 126, byte(len(payload) >> 8), byte(len(payload))}
	frame = append(frame, key[:]...)
	frame = append(frame, masked...)

	r := streamio.NewFeedReader()
	go feedOneByteAtATime(r, frame)

	f, err := ReadFrame(r, time.Second)
	require.NoError(t, err)
	assert.Equal(t, OpBinary, f.Opcode)
	assert.Equal(t, payload, f.Payload)
}

func TestCloseCodePayload_RoundTrip(t *testing.T) {
	payload := BuildClosePayload(CloseNormal, "bye")
	code, reason := ParseClosePayload(payload)
	assert.Equal(t, CloseNormal, code)
	assert.Equal(t, "bye", reason)
}
