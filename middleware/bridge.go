package middleware

import (
	"net/http"

	"github.com/wisphq/wisp"
	"github.com/wisphq/wisp/internal/nethttpcompat"
)

// Middleware is the registration-ready unit the Application expects: every
// constructor in this package returns one of these, matching wisp.Middleware's
// shape via its Fn field.
type Middleware = wisp.Middleware

// newBridgeMiddleware adapts a net/http-shaped middleware (the
// func(http.Handler) http.Handler convention) into a route-or-global wisp
// middleware. If the bridged middleware answers the request itself (a CORS
// preflight, a blocked request), that answer becomes the response via
// req.Respond; otherwise any headers it set are merged onto the eventual
// response and the pipeline continues.
func newBridgeMiddleware(name string, wrap func(http.Handler) http.Handler) *Middleware {
	return &Middleware{
		Name: name,
		Fn: func(req *wisp.Request) error {
			reachedNext, status, headers, body, remoteAddr := nethttpcompat.Adapt(req, wrap)
			if reachedNext {
				if remoteAddr != "" {
					req.SetClient(remoteAddr)
				}
				return nil
			}

			resp := wisp.NewResponse(body).WithStatus(status)
			for hname, values := range headers {
				for _, v := range values {
					resp.HeaderSet.Add(hname, v)
				}
			}
			req.Respond(resp)
			return nil
		},
	}
}
