package wisp

import (
	"fmt"

	"github.com/wisphq/wisp/router"
)

// NotFoundError and MethodNotAllowedError re-surface the router's routing
// errors at the Application boundary (404 / 405 with Allow).
type NotFoundError = router.ErrNotFound
type MethodNotAllowedError = router.ErrMethodNotAllowed

// ProtocolError reports a request body that cannot be read as asked:
// Request.JSON and Request.Form return it for a mismatched or incomplete
// Content-Type. The connection handler turns it into a 400. The HTTP and
// WebSocket codecs report their own errors (a WebSocket frame violation is a
// *wsproto.ErrProtocol, closed with 1002).
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "wisp: protocol error: " + e.Reason }

// TimeoutError distinguishes a deadline expiry from any other I/O failure.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string   { return fmt.Sprintf("wisp: timeout during %s", e.Op) }
func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Temporary() bool { return true }

// abortError is raised by Request.Abort and recognized by the connection
// handler, turned directly into a response of Status with Message as body.
type abortError struct {
	Status  int
	Message string
}

func (e *abortError) Error() string {
	return fmt.Sprintf("wisp: abort(%d): %s", e.Status, e.Message)
}

// redirectError is raised by Request.Redirect, recognized the same way.
type redirectError struct {
	To     string
	Status int
	Body   string
}

func (e *redirectError) Error() string {
	return fmt.Sprintf("wisp: redirect(%d) to %s", e.Status, e.To)
}

// HandlerError pairs an error from user handler code with its Route. The
// connection handler does not wrap errors in it: the "error" event carries
// the original error value.
type HandlerError struct {
	Route *Route
	Err   error
}

func (e *HandlerError) Error() string { return fmt.Sprintf("wisp: handler error: %v", e.Err) }
func (e *HandlerError) Unwrap() error { return e.Err }
