package wsproto

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wisphq/wisp/internal/streamio"
)

// State is the connection lifecycle of a WebSocket session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

// Close codes used directly by this package and its callers.
const (
	CloseNormal          uint16 = 1000
	CloseGoingAway       uint16 = 1001
	CloseProtocolError   uint16 = 1002
	CloseUnsupportedData uint16 = 1003
	CloseInvalidPayload  uint16 = 1007
	ClosePolicyViolation uint16 = 1008
	CloseMessageTooBig   uint16 = 1009
	CloseInternalError   uint16 = 1011
)

// Conn owns a connection for the lifetime of a WebSocket session, layered
// atop the same Reader/Writer pair the HTTP codec used before the upgrade:
// reader, writer, state, negotiated subprotocol/extensions. It runs no ping
// timer and no pong timeout of its own: a PING goes out only when Ping is
// called.
type Conn struct {
	r *streamio.Reader
	w *streamio.Writer

	state        atomic.Int32
	subprotocol  string
	extensions   string
	writeMu      sync.Mutex
	readDeadline time.Duration
}

// NewConn wraps an already-upgraded connection. Callers transition state to
// StateOpen once the 101 response has been written.
func NewConn(r *streamio.Reader, w *streamio.Writer, n Negotiated) *Conn {
	c := &Conn{r: r, w: w, subprotocol: n.Protocol, extensions: n.Ext}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) setState(s State) { c.state.Store(int32(s)) }

// Open transitions CONNECTING -> OPEN after a successful handshake response.
func (c *Conn) Open() { c.setState(StateOpen) }

func (c *Conn) Subprotocol() string { return c.subprotocol }
func (c *Conn) Extensions() string  { return c.extensions }

// writeFrame serializes a single frame with mutual exclusion against other
// writers (Ping, the automatic PONG, Close and WriteMessage may be called
// concurrently).
func (c *Conn) writeFrame(f Frame, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.w, f, timeout)
}

// WriteMessage sends a single-frame TEXT or BINARY message. In CLOSING
// state only Close may be sent.
func (c *Conn) WriteMessage(opcode Opcode, payload []byte, timeout time.Duration) error {
	if c.State() != StateOpen {
		return &ErrProtocol{Reason: "write attempted while not OPEN"}
	}
	return c.writeFrame(Frame{Fin: true, Opcode: opcode, Payload: payload}, timeout)
}

// Ping sends a PING control frame.
func (c *Conn) Ping(payload []byte, timeout time.Duration) error {
	if c.State() != StateOpen {
		return &ErrProtocol{Reason: "ping attempted while not OPEN"}
	}
	return c.writeFrame(Frame{Fin: true, Opcode: OpPing, Payload: payload}, timeout)
}

// Close performs the closing handshake. From OPEN it sends a CLOSE frame
// carrying code+reason and transitions to CLOSING; from CLOSING (our CLOSE
// already sent) or CONNECTING it closes the writer and transitions to
// CLOSED. In CLOSED, which ReadMessage enters once the peer's CLOSE has
// arrived, it does nothing.
func (c *Conn) Close(code uint16, reason string, timeout time.Duration) error {
	switch c.State() {
	case StateClosed:
		return nil
	case StateOpen:
		c.setState(StateClosing)
		err := c.writeFrame(Frame{Fin: true, Opcode: OpClose, Payload: BuildClosePayload(code, reason)}, timeout)
		return err
	case StateClosing:
		c.setState(StateClosed)
		return c.w.Close()
	default: // CONNECTING
		c.setState(StateClosed)
		return c.w.Close()
	}
}

// Message is one fully-assembled application message: a run of frames
// sharing one opcode, terminated by FIN=1.
type Message struct {
	Opcode  Opcode
	Payload []byte
}

// ReadMessage reads and assembles the next application message: non-control
// frames may span multiple frames with FIN=0 until a terminating FIN=1;
// control frames are never fragmented and may be interleaved within a
// fragmented message. PING is answered automatically with a PONG echo. In
// CLOSING state, any non-CLOSE frame received is silently dropped.
func (c *Conn) ReadMessage(timeout time.Duration) (*Message, error) {
	var assembling bool
	var opcode Opcode
	var payload []byte

	for {
		f, err := ReadFrame(c.r, timeout)
		if err != nil {
			return nil, err
		}

		if c.State() == StateClosing && f.Opcode != OpClose {
			continue // drop non-CLOSE frames once closing
		}

		switch f.Opcode {
		case OpPing:
			if err := c.writeFrame(Frame{Fin: true, Opcode: OpPong, Payload: f.Payload}, timeout); err != nil {
				return nil, err
			}
			continue
		case OpPong:
			continue
		case OpClose:
			code, reason := ParseClosePayload(f.Payload)
			if c.State() == StateOpen {
				c.setState(StateClosing)
				c.writeFrame(Frame{Fin: true, Opcode: OpClose, Payload: BuildClosePayload(code, reason)}, timeout)
			}
			c.setState(StateClosed)
			return &Message{Opcode: OpClose, Payload: f.Payload}, nil
		case OpContinuation:
			if !assembling {
				return nil, &ErrProtocol{Reason: "continuation without preceding fragment"}
			}
			payload = append(payload, f.Payload...)
			if f.Fin {
				return &Message{Opcode: opcode, Payload: payload}, nil
			}
		default: // TEXT or BINARY
			if assembling {
				return nil, &ErrProtocol{Reason: "new message started before previous finished"}
			}
			if f.Fin {
				return &Message{Opcode: f.Opcode, Payload: f.Payload}, nil
			}
			assembling = true
			opcode = f.Opcode
			payload = append(payload, f.Payload...)
		}
	}
}
