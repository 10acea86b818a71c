// Package wsproto implements the RFC 6455 handshake and frame codec,
// hand-built rather than delegated to gorilla/websocket so wisp's
// connection loop can drive it directly over the same streamio
// Reader/Writer pair the HTTP codec uses.
package wsproto

import (
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/wisphq/wisp/internal/headerutil"
)

// GUID is the fixed RFC 6455 magic string appended to the client key before
// hashing.
const GUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// HandshakeRequest holds the parts of a request the handshake validates.
type HandshakeRequest struct {
	Method  string
	Version string
	Headers *headerutil.Headers
}

// Negotiated carries the accepted key plus any echoed extension/protocol.
type Negotiated struct {
	Accept   string
	Protocol string
	Ext      string
}

// ErrBadHandshake is returned for any handshake validation failure; the
// connection handler turns it into a 400.
type ErrBadHandshake struct {
	Reason string
}

func (e *ErrBadHandshake) Error() string { return "wsproto: bad handshake: " + e.Reason }

// IsUpgradeRequest reports whether headers carry an Upgrade: websocket
// request, independent of whether the rest of the handshake is valid.
func IsUpgradeRequest(headers *headerutil.Headers) bool {
	up, ok := headers.Get("Upgrade")
	return ok && strings.EqualFold(strings.TrimSpace(up), "websocket")
}

// ValidateHandshake checks method, version, and the required headers, and
// computes the Sec-WebSocket-Accept value.
func ValidateHandshake(req HandshakeRequest, offeredProtocols, offeredExtensions []string) (Negotiated, error) {
	if req.Method != "GET" {
		return Negotiated{}, &ErrBadHandshake{Reason: "method must be GET"}
	}
	if req.Version != "HTTP/1.1" {
		return Negotiated{}, &ErrBadHandshake{Reason: "version must be HTTP/1.1"}
	}
	if _, ok := req.Headers.Get("Host"); !ok {
		return Negotiated{}, &ErrBadHandshake{Reason: "missing Host"}
	}
	if !IsUpgradeRequest(req.Headers) {
		return Negotiated{}, &ErrBadHandshake{Reason: "missing or invalid Upgrade header"}
	}
	conn, ok := req.Headers.Get("Connection")
	if !ok || !containsToken(conn, "upgrade") {
		return Negotiated{}, &ErrBadHandshake{Reason: "missing or invalid Connection header"}
	}
	version, ok := req.Headers.Get("Sec-WebSocket-Version")
	if !ok || strings.TrimSpace(version) != "13" {
		return Negotiated{}, &ErrBadHandshake{Reason: "Sec-WebSocket-Version must be 13"}
	}
	key, ok := req.Headers.Get("Sec-WebSocket-Key")
	if !ok {
		return Negotiated{}, &ErrBadHandshake{Reason: "missing Sec-WebSocket-Key"}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil || len(raw) != 16 {
		return Negotiated{}, &ErrBadHandshake{Reason: "Sec-WebSocket-Key must decode to 16 bytes"}
	}

	accept := AcceptKey(key)

	n := Negotiated{Accept: accept}
	if want, ok := req.Headers.Get("Sec-WebSocket-Protocol"); ok {
		n.Protocol = firstAcceptable(splitCSV(want), offeredProtocols)
	}
	if want, ok := req.Headers.Get("Sec-WebSocket-Extensions"); ok {
		n.Ext = firstAcceptable(splitCSV(want), offeredExtensions)
	}
	return n, nil
}

// AcceptKey computes base64(sha1(key + GUID)), the core RFC 6455 handshake
// invariant.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(key) + GUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func containsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func firstAcceptable(offered, allowed []string) string {
	if len(allowed) == 0 {
		if len(offered) > 0 {
			return offered[0]
		}
		return ""
	}
	for _, o := range offered {
		for _, a := range allowed {
			if strings.EqualFold(o, a) {
				return o
			}
		}
	}
	return ""
}

// BuildAcceptResponseHeaders fills the 101 response headers.
func BuildAcceptResponseHeaders(n Negotiated) *headerutil.Headers {
	h := headerutil.New()
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Accept", n.Accept)
	if n.Protocol != "" {
		h.Set("Sec-WebSocket-Protocol", n.Protocol)
	}
	if n.Ext != "" {
		h.Set("Sec-WebSocket-Extensions", n.Ext)
	}
	return h
}
