package streamio

import (
	"bufio"
	"net"
	"sync"
	"time"
)

// Writer wraps a transport with buffered, deadline-aware, drain-capable
// writes. Backpressure is modeled on the transport's own blocking Write:
// when the peer stops reading, bufio/net.Conn.Write blocks until the kernel
// send buffer has room again, a natural pause/resume signal without any
// separate flow-control bookkeeping.
type Writer struct {
	conn   net.Conn
	bw     *bufio.Writer
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewWriter(conn net.Conn) *Writer {
	return &Writer{conn: conn, bw: bufio.NewWriterSize(conn, 4096), done: make(chan struct{})}
}

// Write sends data, optionally flushing (drain) and optionally bounded by a
// deadline.
func (w *Writer) Write(data []byte, drain bool, timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return net.ErrClosed
	}
	if timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		defer w.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := w.bw.Write(data); err != nil {
		if isTimeout(err) {
			return &ErrTimeout{Op: "write"}
		}
		return err
	}
	if drain {
		if err := w.bw.Flush(); err != nil {
			if isTimeout(err) {
				return &ErrTimeout{Op: "drain"}
			}
			return err
		}
	}
	return nil
}

// WriteLines writes each line followed by CRLF, flushing once at the end.
func (w *Writer) WriteLines(lines [][]byte, timeout time.Duration) error {
	for _, line := range lines {
		if err := w.Write(line, false, timeout); err != nil {
			return err
		}
		if err := w.Write([]byte("\r\n"), false, timeout); err != nil {
			return err
		}
	}
	return w.Drain(timeout)
}

// Drain flushes any buffered, unwritten bytes to the transport.
func (w *Writer) Drain(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return net.ErrClosed
	}
	if timeout > 0 {
		w.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	if err := w.bw.Flush(); err != nil {
		if isTimeout(err) {
			return &ErrTimeout{Op: "drain"}
		}
		return err
	}
	return nil
}

// Close flushes and closes the underlying transport.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.bw.Flush()
	err := w.conn.Close()
	close(w.done)
	return err
}

// WaitClosed returns a channel that is closed once Close has completed.
func (w *Writer) WaitClosed() <-chan struct{} { return w.done }
