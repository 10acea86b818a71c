package httpwire

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/streamio"
)

// StatusText maps well-known codes to their reason phrase; anything absent
// falls back to a generic phrase so the codec never fails to serialize.
var StatusText = map[int]string{
	100: "Continue", 101: "Switching Protocols",
	200: "OK", 201: "Created", 202: "Accepted", 204: "No Content",
	301: "Moved Permanently", 302: "Found", 303: "See Other", 304: "Not Modified", 307: "Temporary Redirect", 308: "Permanent Redirect",
	400: "Bad Request", 401: "Unauthorized", 403: "Forbidden", 404: "Not Found",
	405: "Method Not Allowed", 408: "Request Timeout", 409: "Conflict", 413: "Payload Too Large", 422: "Unprocessable Entity", 429: "Too Many Requests",
	500: "Internal Server Error", 501: "Not Implemented", 502: "Bad Gateway", 503: "Service Unavailable", 1011: "",
}

func ReasonFor(code int) string {
	if r, ok := StatusText[code]; ok && r != "" {
		return r
	}
	switch {
	case code < 200:
		return "Informational"
	case code < 300:
		return "Success"
	case code < 400:
		return "Redirection"
	case code < 500:
		return "Client Error"
	default:
		return "Server Error"
	}
}

// EnsureFraming fills Content-Length (if bodyLen is known) or
// Transfer-Encoding: chunked (if it is not) when neither header is already
// present.
func EnsureFraming(headers *headerutil.Headers, bodyLen int64, knownLength bool) {
	if headers.Has("Content-Length") || headers.Has("Transfer-Encoding") {
		return
	}
	if knownLength {
		headers.Set("Content-Length", strconv.FormatInt(bodyLen, 10))
	} else {
		headers.Set("Transfer-Encoding", "chunked")
	}
}

// WritePreamble renders "VERSION CODE REASON\r\n" + headers + CRLF CRLF.
func WritePreamble(w *streamio.Writer, version string, code int, headers *headerutil.Headers, timeout time.Duration) error {
	lines := make([][]byte, 0, headers.Len()+1)
	lines = append(lines, []byte(fmt.Sprintf("%s %d %s", version, code, ReasonFor(code))))
	headers.Each(func(name, value string) {
		lines = append(lines, []byte(name+": "+value))
	})
	if err := w.WriteLines(lines, timeout); err != nil {
		return err
	}
	return w.Write([]byte("\r\n"), true, timeout)
}

// WriteFixedBody writes the full body for a non-streaming response.
func WriteFixedBody(w *streamio.Writer, body []byte, timeout time.Duration) error {
	return w.Write(body, true, timeout)
}

// WriteChunk writes one chunked-transfer-encoding chunk.
func WriteChunk(w *streamio.Writer, chunk []byte, timeout time.Duration) error {
	header := []byte(fmt.Sprintf("%x\r\n", len(chunk)))
	if err := w.Write(header, false, timeout); err != nil {
		return err
	}
	if err := w.Write(chunk, false, timeout); err != nil {
		return err
	}
	return w.Write([]byte("\r\n"), true, timeout)
}

// WriteLastChunk terminates a chunked body.
func WriteLastChunk(w *streamio.Writer, timeout time.Duration) error {
	return w.Write([]byte("0\r\n\r\n"), true, timeout)
}
