package wisp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/httpwire"
	"github.com/wisphq/wisp/internal/streamio"
	"github.com/wisphq/wisp/internal/urlutil"
	"github.com/wisphq/wisp/internal/wsproto"
)

// Request is built once the status line and headers finish parsing. Its
// body is never pre-read; Read/Text/JSON/Form pull it lazily off the
// streaming reader and buffer the whole body so a second call sees the same
// bytes, while Stream hands out that reader without buffering.
type Request struct {
	MethodName string
	TargetURL  *URL
	Version    string
	HeaderSet  *Headers

	CreatedAt time.Time
	Worker    *Worker
	Route     *Route

	client string
	server string

	r   *streamio.Reader
	w   *streamio.Writer
	cl  int64 // content length, -1 if absent
	stream *httpwire.BodyStream

	mu       sync.Mutex
	body     []byte
	bodyRead bool
	closed   bool

	respHeaders *Headers // headers a middleware wants merged onto the eventual response
	respOverride *Response // set when a middleware has already produced the full response
	clientOverride string  // set by middleware.RealIP

	ws *WebSocket // set once a WebSocket upgrade completes
}

// NewRequest builds a standalone Request not tied to any live connection,
// for constructing synthetic requests to drive middlewares/handlers
// directly (tests, an embedding application's own request-replay tooling).
// Its body is always empty; there is no underlying stream to read from.
func NewRequest(method, rawTarget string) (*Request, error) {
	u, err := urlutil.Parse(rawTarget, "")
	if err != nil {
		return nil, err
	}
	return &Request{
		MethodName: method,
		TargetURL:  u,
		Version:    "HTTP/1.1",
		HeaderSet:  headerutil.New(),
		CreatedAt:  time.Now(),
		cl:         -1,
	}, nil
}

func newRequest(head *httpwire.ParsedHead, r *streamio.Reader, w *streamio.Writer, client, server string, worker *Worker) *Request {
	cl := int64(-1)
	if n, ok := head.Headers.ContentLength(); ok {
		cl = n
	}
	return &Request{
		MethodName: head.Method,
		TargetURL:  head.URL,
		Version:    head.Version,
		HeaderSet:  head.Headers,
		CreatedAt:  time.Now(),
		Worker:     worker,
		client:     client,
		server:     server,
		r:          r,
		w:          w,
		cl:         cl,
	}
}

// Method returns the request method, e.g. "GET".
func (req *Request) Method() string { return req.MethodName }

// URL returns the parsed request target.
func (req *Request) URL() *URL { return req.TargetURL }

// RawTarget returns the original, unparsed request-target bytes (e.g.
// "/widgets?id=3"), for bridges (internal/nethttpcompat) that need to hand
// the request to net/http-shaped code.
func (req *Request) RawTarget() string { return req.TargetURL.Raw() }

// HTTPVersion returns "HTTP/1.1" or "HTTP/1.0".
func (req *Request) HTTPVersion() string { return req.Version }

// Headers returns the parsed header multi-map.
func (req *Request) Headers() *Headers { return req.HeaderSet }

// Query returns the request target's parsed query string.
func (req *Request) Query() *Query { return &req.TargetURL.Query }

// Cookies parses and returns the request's Cookie header as a jar.
func (req *Request) Cookies() *CookieJar {
	jar := headerutil.NewJar()
	for _, raw := range req.HeaderSet.Values("Cookie") {
		sub := headerutil.ParseCookieHeader(raw)
		for _, name := range sub.Names() {
			if _, exists := jar.Get(name); exists {
				continue
			}
			if c, ok := sub.Get(name); ok {
				jar.Set(c)
			}
		}
	}
	return jar
}

// Client returns the remote address of the peer, or whatever
// middleware.RealIP resolved it to (e.g. from X-Forwarded-For) if that
// middleware ran.
func (req *Request) Client() string {
	req.mu.Lock()
	defer req.mu.Unlock()
	if req.clientOverride != "" {
		return req.clientOverride
	}
	return req.client
}

// SetClient overrides the reported client address, per
// middleware.RealIP's proxy-aware IP resolution.
func (req *Request) SetClient(addr string) {
	req.mu.Lock()
	req.clientOverride = addr
	req.mu.Unlock()
}

// Server returns the local address the connection was accepted on.
func (req *Request) Server() string { return req.server }

// IsWebSocket reports whether this request is a valid WebSocket upgrade
// request.
func (req *Request) IsWebSocket() bool {
	upgrade, ok := req.HeaderSet.Get("Upgrade")
	if !ok || !strings.EqualFold(upgrade, "websocket") {
		return false
	}
	conn, ok := req.HeaderSet.Get("Connection")
	return ok && containsToken(conn, "upgrade")
}

func containsToken(csv, token string) bool {
	for _, part := range strings.Split(csv, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// Stream returns the lazily-consumed body reader, opening it on first use.
// Once Read/Text/JSON/Form have buffered the body, Stream returns an error;
// it does not replay the buffer.
func (req *Request) Stream(timeout time.Duration) (*httpwire.BodyStream, error) {
	req.mu.Lock()
	defer req.mu.Unlock()
	if req.bodyRead {
		return nil, fmt.Errorf("wisp: request body already buffered, use Read/Text/JSON instead of Stream")
	}
	if req.stream == nil {
		req.stream = httpwire.NewBodyStream(req.r, req.cl, timeout)
	}
	return req.stream, nil
}

// Read drains and returns the entire body, buffering it for subsequent
// calls to Read/Text/JSON/Form.
func (req *Request) Read(timeout time.Duration) ([]byte, error) {
	req.mu.Lock()
	defer req.mu.Unlock()
	if req.bodyRead {
		return req.body, nil
	}
	if req.stream == nil {
		req.stream = httpwire.NewBodyStream(req.r, req.cl, timeout)
	}
	data, err := req.stream.ReadAll()
	if err != nil {
		return nil, err
	}
	req.body = data
	req.bodyRead = true
	return req.body, nil
}

// Text returns the body decoded as text. Only UTF-8 is supported; an
// encoding parameter is deliberately not offered.
func (req *Request) Text(timeout time.Duration) (string, error) {
	data, err := req.Read(timeout)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSON decodes the body as JSON into dest. If checkContentType is true, a
// Content-Type other than application/json is rejected.
func (req *Request) JSON(dest any, checkContentType bool, timeout time.Duration) error {
	if checkContentType {
		ct, ok := req.HeaderSet.ContentType()
		if !ok || !strings.EqualFold(ct.MediaType, "application/json") {
			return &ProtocolError{Reason: "Content-Type is not application/json"}
		}
	}
	data, err := req.Read(timeout)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Form parses the body as application/x-www-form-urlencoded or simple
// multipart/form-data.
func (req *Request) Form(timeout time.Duration) (url.Values, error) {
	ct, hasCT := req.HeaderSet.ContentType()
	data, err := req.Read(timeout)
	if err != nil {
		return nil, err
	}
	if !hasCT || strings.EqualFold(ct.MediaType, "application/x-www-form-urlencoded") {
		return url.ParseQuery(string(data))
	}
	if strings.EqualFold(ct.MediaType, "multipart/form-data") {
		boundary := ct.Parameters["boundary"]
		if boundary == "" {
			return nil, &ProtocolError{Reason: "multipart/form-data missing boundary"}
		}
		return parseSimpleMultipart(data, boundary)
	}
	return nil, &ProtocolError{Reason: "unsupported form Content-Type: " + ct.MediaType}
}

func parseSimpleMultipart(body []byte, boundary string) (url.Values, error) {
	values := url.Values{}
	delim := []byte("--" + boundary)
	parts := bytes.Split(body, delim)
	for _, part := range parts {
		part = bytes.Trim(part, "\r\n")
		if len(part) == 0 || bytes.Equal(part, []byte("--")) {
			continue
		}
		headerEnd := bytes.Index(part, []byte("\r\n\r\n"))
		if headerEnd < 0 {
			continue
		}
		header := string(part[:headerEnd])
		content := part[headerEnd+4:]
		if !strings.Contains(header, "form-data") {
			continue
		}
		_, params, err := mime.ParseMediaType(strings.TrimPrefix(strings.SplitN(header, ":", 2)[1], " "))
		if err != nil {
			continue
		}
		name := params["name"]
		if name != "" {
			values.Add(name, string(content))
		}
	}
	return values, nil
}

// Session looks up a named cookie and returns its raw value; a backing
// session store is an external collaborator wisp does not provide.
func (req *Request) Session(name string) (string, bool) {
	jar := req.Cookies()
	c, ok := jar.Get(name)
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Handshake validates and negotiates a WebSocket upgrade against the
// request's headers, without performing the upgrade itself. The connection
// handler does not call it: it runs the same wsproto validation, with no
// offered lists, before constructing a WebSocket. extensions and
// subprotocols are the server's offered lists, most-preferred first.
func (req *Request) Handshake(extensions, subprotocols []string) (wsproto.Negotiated, error) {
	return wsproto.ValidateHandshake(wsproto.HandshakeRequest{
		Method:  req.MethodName,
		Version: req.Version,
		Headers: req.HeaderSet,
	}, subprotocols, extensions)
}

// Redirect aborts the handler by raising a typed error the connection
// handler turns into a 3xx response with Location set.
func (req *Request) Redirect(to string, status int, body string) error {
	if status == 0 {
		status = 302
	}
	return &redirectError{To: to, Status: status, Body: body}
}

// Abort aborts the handler by raising a typed error the connection handler
// turns directly into a response of status with message as the body.
func (req *Request) Abort(status int, message string) error {
	return &abortError{Status: status, Message: message}
}

// Close marks the request closed; a middleware calling Close short-circuits
// the pipeline so the handler never runs.
func (req *Request) Close() {
	req.mu.Lock()
	req.closed = true
	req.mu.Unlock()
}

// IsClosed reports whether Close has been called.
func (req *Request) IsClosed() bool {
	req.mu.Lock()
	defer req.mu.Unlock()
	return req.closed
}

// WebSocket returns the upgraded connection, if the connection handler has
// completed a WebSocket upgrade for this request.
func (req *Request) WebSocket() *WebSocket { return req.ws }

func (req *Request) setWebSocket(ws *WebSocket) { req.ws = ws }

// AddResponseHeader records a header a middleware wants merged onto whatever
// response the handler (or a later middleware) eventually produces. Used by
// middleware.CORS and similar bridges that annotate rather than replace the
// response.
func (req *Request) AddResponseHeader(name, value string) {
	req.mu.Lock()
	if req.respHeaders == nil {
		req.respHeaders = headerutil.New()
	}
	req.respHeaders.Add(name, value)
	req.mu.Unlock()
}

// Respond lets a middleware short-circuit the pipeline with a fully-formed
// response (a CORS preflight reply, a basic-auth 401, a panic recovery's
// 500) instead of the generic 204 that a plain Close() produces.
// It also closes the request, so the handler never runs.
func (req *Request) Respond(resp *Response) {
	req.mu.Lock()
	req.respOverride = resp
	req.closed = true
	req.mu.Unlock()
}
