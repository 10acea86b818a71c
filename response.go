package wisp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/httpwire"
	"github.com/wisphq/wisp/internal/streamio"
)

// StreamFunc produces a response body incrementally: it is called once and
// writes chunks to w; returning nil or io.EOF ends the body cleanly, any
// other error aborts it. Used for the "streaming producer" body kind.
type StreamFunc func(w io.Writer) error

// Response is (status code, headers, body), where body is bytes, a JSON
// document, an HTML document, a file handle, or a streaming producer.
// Status must be 100-599 and may not be a handler-produced 3xx (redirects
// go through Request.Redirect instead).
type Response struct {
	Status  int
	HeaderSet *Headers

	body       []byte
	file       *os.File
	streamFn   StreamFunc
	knownSize  bool
}

// NewResponse builds a fixed-body response with status 200 and no headers.
func NewResponse(body []byte) *Response {
	return &Response{Status: 200, HeaderSet: headerutil.New(), body: body, knownSize: true}
}

// Text builds a 200 text/plain response.
func Text(body string) *Response {
	r := NewResponse([]byte(body))
	r.HeaderSet.Set("Content-Type", "text/plain; charset=utf-8")
	return r
}

// HTML builds a 200 text/html response.
func HTML(body string) *Response {
	r := NewResponse([]byte(body))
	r.HeaderSet.Set("Content-Type", "text/html; charset=utf-8")
	return r
}

// JSON builds a 200 application/json response by marshaling v.
func JSON(v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := NewResponse(data)
	r.HeaderSet.Set("Content-Type", "application/json")
	return r, nil
}

// FileResponse streams f's contents as the body; its size, if known via
// Stat, is used for Content-Length, otherwise the codec falls back to
// chunked transfer encoding.
func FileResponse(f *os.File, contentType string) *Response {
	r := &Response{Status: 200, HeaderSet: headerutil.New(), file: f}
	if contentType != "" {
		r.HeaderSet.Set("Content-Type", contentType)
	}
	if info, err := f.Stat(); err == nil {
		r.knownSize = true
		_ = info
	}
	return r
}

// StreamResponse builds a response whose body is produced incrementally by
// fn, always serialized with Transfer-Encoding: chunked.
func StreamResponse(fn StreamFunc) *Response {
	return &Response{Status: 200, HeaderSet: headerutil.New(), streamFn: fn}
}

// WithStatus returns r with its status code changed.
func (r *Response) WithStatus(status int) *Response {
	r.Status = status
	return r
}

// validateStatus enforces the response's status-code range invariant.
func (r *Response) validateStatus() error {
	if r.Status < 100 || r.Status > 599 {
		return fmt.Errorf("wisp: response status %d out of range 100-599", r.Status)
	}
	return nil
}

// write serializes the response over w. Date/Server are added if absent, a
// framing header is added if absent.
func (r *Response) write(w *streamio.Writer, version string, timeout time.Duration) error {
	if err := r.validateStatus(); err != nil {
		return err
	}
	if !r.HeaderSet.Has("Date") {
		r.HeaderSet.Set("Date", time.Now().UTC().Format(http1Date))
	}
	if !r.HeaderSet.Has("Server") {
		r.HeaderSet.Set("Server", "wisp")
	}

	switch {
	case r.streamFn != nil:
		httpwire.EnsureFraming(r.HeaderSet, 0, false)
		if err := httpwire.WritePreamble(w, version, r.Status, r.HeaderSet, timeout); err != nil {
			return err
		}
		return r.writeChunkedStream(w, timeout)

	case r.file != nil:
		return r.writeFile(w, version, timeout)

	default:
		httpwire.EnsureFraming(r.HeaderSet, int64(len(r.body)), true)
		if err := httpwire.WritePreamble(w, version, r.Status, r.HeaderSet, timeout); err != nil {
			return err
		}
		return httpwire.WriteFixedBody(w, r.body, timeout)
	}
}

// chunkWriter adapts streamio.Writer + a timeout to an io.Writer so user
// StreamFunc callbacks can use ordinary io.Writer calls.
type chunkWriter struct {
	w       *streamio.Writer
	timeout time.Duration
}

func (c chunkWriter) Write(p []byte) (int, error) {
	if err := httpwire.WriteChunk(c.w, p, c.timeout); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (r *Response) writeChunkedStream(w *streamio.Writer, timeout time.Duration) error {
	err := r.streamFn(chunkWriter{w: w, timeout: timeout})
	if err != nil && err != io.EOF {
		return err
	}
	return httpwire.WriteLastChunk(w, timeout)
}

func (r *Response) writeFile(w *streamio.Writer, version string, timeout time.Duration) error {
	info, statErr := r.file.Stat()
	if statErr == nil {
		httpwire.EnsureFraming(r.HeaderSet, info.Size(), true)
	} else {
		httpwire.EnsureFraming(r.HeaderSet, 0, false)
	}
	if err := httpwire.WritePreamble(w, version, r.Status, r.HeaderSet, timeout); err != nil {
		return err
	}
	if statErr == nil {
		buf := make([]byte, httpwire.ChunkSize)
		for {
			n, err := r.file.Read(buf)
			if n > 0 {
				if werr := httpwire.WriteFixedBody(w, buf[:n], timeout); werr != nil {
					return werr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
	buf := make([]byte, httpwire.ChunkSize)
	for {
		n, err := r.file.Read(buf)
		if n > 0 {
			if werr := httpwire.WriteChunk(w, buf[:n], timeout); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return httpwire.WriteLastChunk(w, timeout)
		}
		if err != nil {
			return err
		}
	}
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"
