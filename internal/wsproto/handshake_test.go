package wsproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/internal/headerutil"
)

func validHeaders() *headerutil.Headers {
	h := headerutil.New()
	h.Set("Host", "example.com")
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Version", "13")
	h.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return h
}

// RFC 6455 example: Sec-WebSocket-Accept is base64(sha1(base64(K)+GUID)).
func TestAcceptKey_RFC6455Example(t *testing.T) {
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestValidateHandshake_Success(t *testing.T) {
	n, err := ValidateHandshake(HandshakeRequest{Method: "GET", Version: "HTTP/1.1", Headers: validHeaders()}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", n.Accept)
}

func TestValidateHandshake_RejectsNonGET(t *testing.T) {
	_, err := ValidateHandshake(HandshakeRequest{Method: "POST", Version: "HTTP/1.1", Headers: validHeaders()}, nil, nil)
	assert.Error(t, err)
}

func TestValidateHandshake_RejectsBadVersionHeader(t *testing.T) {
	h := validHeaders()
	h.Set("Sec-WebSocket-Version", "8")
	_, err := ValidateHandshake(HandshakeRequest{Method: "GET", Version: "HTTP/1.1", Headers: h}, nil, nil)
	assert.Error(t, err)
}

func TestValidateHandshake_RejectsShortKey(t *testing.T) {
	h := validHeaders()
	h.Set("Sec-WebSocket-Key", "dG9vc2hvcnQ=")
	_, err := ValidateHandshake(HandshakeRequest{Method: "GET", Version: "HTTP/1.1", Headers: h}, nil, nil)
	assert.Error(t, err)
}

func TestValidateHandshake_NegotiatesFirstAcceptableProtocol(t *testing.T) {
	h := validHeaders()
	h.Set("Sec-WebSocket-Protocol", "chat, superchat")
	n, err := ValidateHandshake(HandshakeRequest{Method: "GET", Version: "HTTP/1.1", Headers: h}, []string{"superchat"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "superchat", n.Protocol)
}

func TestBuildAcceptResponseHeaders(t *testing.T) {
	n := Negotiated{Accept: "abc", Protocol: "chat"}
	h := BuildAcceptResponseHeaders(n)
	up, _ := h.Get("Upgrade")
	assert.Equal(t, "websocket", up)
	acc, _ := h.Get("Sec-WebSocket-Accept")
	assert.Equal(t, "abc", acc)
	proto, _ := h.Get("Sec-WebSocket-Protocol")
	assert.Equal(t, "chat", proto)
}
