// Package nethttpcompat adapts net/http-shaped middleware — the
// func(http.Handler) http.Handler convention used across the chi/v5 and
// go-chi/cors ecosystem — onto wisp's own Request/response pipeline, so
// that battle-tested logic (RealIP, Recoverer, CORS negotiation) can run
// unmodified inside a wisp middleware chain.
package nethttpcompat

import (
	"net/http"
	"net/http/httptest"

	"github.com/wisphq/wisp/internal/headerutil"
)

// Request is the minimal surface the adapter needs from a wisp *Request, so
// this package never has to import the root wisp package (which would be a
// dependency cycle — wisp's own middleware subpackage imports this one).
type Request interface {
	Method() string
	RawTarget() string // the original request-target, e.g. "/widgets?id=3"
	Client() string
	Headers() *headerutil.Headers
	AddResponseHeader(name, value string)
}

// Adapt wraps a net/http middleware (wrap) around a terminal "continue" step
// and returns whether the chain reached that terminal step, plus the status
// and body the net/http side wrote if it answered the request itself (a CORS
// preflight reply, a blocked request, a recovered panic).
//
// The caller (wisp's middleware package) decides what "reaching terminal"
// and "not reaching it" mean for its own MiddlewareFunc contract.
func Adapt(req Request, wrap func(http.Handler) http.Handler) (reachedNext bool, status int, headers http.Header, body []byte, remoteAddr string) {
	httpReq := toHTTPRequest(req)
	rec := httptest.NewRecorder()

	called := false
	var seenAddr string
	terminal := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seenAddr = r.RemoteAddr
	})

	wrap(terminal).ServeHTTP(rec, httpReq)

	if called {
		// the wrapped middleware may still have set headers (e.g. CORS's
		// Access-Control-Allow-Origin on a simple, non-preflight request)
		// before calling through; surface those onto the wisp request.
		for name, values := range rec.Header() {
			for _, v := range values {
				req.AddResponseHeader(name, v)
			}
		}
		return true, 0, nil, nil, seenAddr
	}

	result := rec.Result()
	return false, result.StatusCode, result.Header, rec.Body.Bytes(), ""
}

func toHTTPRequest(req Request) *http.Request {
	target := req.RawTarget()
	if target == "" {
		target = "/"
	}
	httpReq := httptest.NewRequest(req.Method(), target, nil)
	httpReq.RemoteAddr = req.Client()
	req.Headers().Each(func(name, value string) {
		httpReq.Header.Add(name, value)
	})
	return httpReq
}
