package wisp

import "github.com/wisphq/wisp/internal/wsproto"

// WebSocket owns the connection after a successful upgrade. State
// transitions, fragment assembly, and the automatic PING/PONG echo all
// live in internal/wsproto; WebSocket is the public facade over it.
type WebSocket = wsproto.Conn

// WebSocket message/state re-exports, for callers who don't want to import
// the internal codec package themselves.
type WSMessage = wsproto.Message
type WSState = wsproto.State

const (
	WSConnecting = wsproto.StateConnecting
	WSOpen       = wsproto.StateOpen
	WSClosing    = wsproto.StateClosing
	WSClosed     = wsproto.StateClosed
)

const (
	WSCloseNormal           = wsproto.CloseNormal
	WSCloseGoingAway        = wsproto.CloseGoingAway
	WSCloseProtocolError    = wsproto.CloseProtocolError
	WSCloseUnsupportedData  = wsproto.CloseUnsupportedData
	WSCloseInvalidPayload   = wsproto.CloseInvalidPayload
	WSClosePolicyViolation  = wsproto.ClosePolicyViolation
	WSCloseMessageTooBig    = wsproto.CloseMessageTooBig
	WSCloseInternalError    = wsproto.CloseInternalError
)

const (
	WSOpcodeText = wsproto.OpText
	WSOpcodeBinary = wsproto.OpBinary
)
