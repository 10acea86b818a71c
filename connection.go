package wisp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/wisphq/wisp/convert"
	"github.com/wisphq/wisp/internal/httpwire"
	"github.com/wisphq/wisp/internal/streamio"
	"github.com/wisphq/wisp/internal/wsproto"
	"github.com/wisphq/wisp/router"
)

// handleConnection is the per-connection loop: read a request, resolve a
// route, run middlewares, call the handler, write a response — or, for a
// WebSocket route, perform the upgrade and hand off to the WS handler for
// the lifetime of the connection. Requests on one connection are processed
// strictly in arrival order: the next status line is not read until the
// previous response has been fully written.
func handleConnection(ctx context.Context, app *Application, worker *Worker, conn net.Conn) {
	r := streamio.NewReader(conn)
	w := streamio.NewWriter(conn)
	defer w.Close()

	client := conn.RemoteAddr().String()
	server := conn.LocalAddr().String()

	for {
		if ctx.Err() != nil {
			return
		}

		head, err := httpwire.ReadHead(r, app.opts.IdleTimeout)
		if err != nil {
			if isCleanDisconnect(err) {
				app.Dispatch("disconnect", client)
				return
			}
			writeProtocolError(w)
			return
		}

		req := newRequest(head, r, w, client, server, worker)
		if !handleOneRequest(app, worker, req) {
			return
		}
		if err := drainRequestBody(req, app.opts.IdleTimeout); err != nil {
			return
		}
	}
}

// drainRequestBody consumes whatever the handler left unread of the request
// body. Bodies are read lazily (Stream/Read/Text/JSON all pull on demand),
// so a handler that never touches the body — or reads only part of a
// streamed one — leaves bytes sitting in front of the next request's status
// line; left alone, those bytes get parsed as the next request and the
// keep-alive stream desyncs. A request with no Content-Length has nothing
// to drain.
func drainRequestBody(req *Request, timeout time.Duration) error {
	if req.cl <= 0 {
		return nil
	}
	_, err := req.Read(timeout)
	return err
}

// isCleanDisconnect treats EOF before any bytes of a new request arrived as
// a silent close rather than a protocol error.
func isCleanDisconnect(err error) bool {
	var pr *streamio.PartialReadError
	if errors.As(err, &pr) {
		return len(pr.Partial) == 0
	}
	return false
}

func writeProtocolError(w *streamio.Writer) {
	resp := HTML("Bad Request").WithStatus(400)
	_ = resp.write(w, "HTTP/1.1", 0)
}

// handleOneRequest runs one request through routing, middleware, and the
// handler (or WebSocket upgrade), writes its response, and reports whether
// the connection should stay open for a further request.
func handleOneRequest(app *Application, worker *Worker, req *Request) bool {
	params, route, err := app.routes.Resolve(req.MethodName, req.TargetURL.Path)
	if err != nil {
		writeRoutingError(app, req, err)
		return keepAliveRequested(req)
	}
	req.Route = route

	if route.IsWebSocket {
		handleWebSocketRoute(app, worker, req, route, params)
		return false // the connection now belongs to the WebSocket for its lifetime
	}

	mwErr := runMiddlewares(req, route, app.globalMiddlewares())
	var value any
	var herr error
	if mwErr != nil {
		herr = mwErr
	} else if req.respOverride != nil {
		// a middleware (e.g. a CORS preflight reply, a basic-auth 401)
		// already built the full response; the handler never runs.
	} else if !req.IsClosed() {
		value, herr = callHandler(req, route, params)
	}

	var resp *Response
	if mwErr == nil && req.respOverride != nil {
		resp = req.respOverride
	} else {
		resp = responseForResult(app, req, route, value, herr)
	}
	if req.respHeaders != nil {
		req.respHeaders.Each(func(name, value string) { resp.HeaderSet.Add(name, value) })
	}
	if route.AfterRequest != nil {
		route.AfterRequest(req, resp)
	}

	if werr := resp.write(req.w, req.Version, app.opts.IdleTimeout); werr != nil {
		app.log.Warn("write response failed", "error", werr)
		return false
	}
	return keepAliveRequested(req) && !connectionClose(resp.HeaderSet)
}

// runMiddlewares runs route-then-global middlewares concurrently, joined
// before the handler starts. A panic inside a middleware is recovered and
// reported the same as a returned error.
func runMiddlewares(req *Request, route *Route, global []*Middleware) error {
	all := make([]MiddlewareFunc, 0, len(route.Middlewares)+len(global))
	for _, m := range route.Middlewares {
		all = append(all, m.Fn)
	}
	for _, m := range global {
		all = append(all, m.Fn)
	}
	if len(all) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(all))
	for i, fn := range all {
		wg.Add(1)
		go func(i int, fn MiddlewareFunc) {
			defer wg.Done()
			defer recoverInto(&errs[i])
			errs[i] = fn(req)
		}(i, fn)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func callHandler(req *Request, route *Route, params map[string]string) (value any, err error) {
	defer recoverInto(&err)
	return route.Handler(req, convert.New(params))
}

func recoverInto(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("wisp: panic: %v", r)
	}
}

// responseForResult turns a handler/middleware outcome into a Response,
// recognizing the typed errors Request.Abort/Request.Redirect raise and
// routing them straight to the right status.
func responseForResult(app *Application, req *Request, route *Route, value any, err error) *Response {
	if err == nil {
		resp, perr := app.parseResponse(value)
		if perr == nil && resp.Status >= 300 && resp.Status < 400 {
			perr = fmt.Errorf("wisp: handler produced status %d; redirects go through Request.Redirect", resp.Status)
		}
		if perr != nil {
			return errorResponse(app, req, route, perr)
		}
		return resp
	}

	var ab *abortError
	if errors.As(err, &ab) {
		return HTML(ab.Message).WithStatus(ab.Status)
	}
	var rd *redirectError
	if errors.As(err, &rd) {
		resp := HTML(rd.Body).WithStatus(rd.Status)
		resp.HeaderSet.Set("Location", rd.To)
		return resp
	}
	var bc *convert.BadConversionError
	if errors.As(err, &bc) {
		return HTML(bc.Error()).WithStatus(400)
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return HTML(pe.Error()).WithStatus(400)
	}

	return errorResponse(app, req, route, err)
}

// errorResponse dispatches the "error" event (route, request, worker,
// exception) and returns the generic 500 the default listener would
// otherwise have to write itself.
func errorResponse(app *Application, req *Request, route *Route, err error) *Response {
	app.Dispatch("error", route, req, req.Worker, err)
	return HTML("Internal Server Error").WithStatus(500)
}

func writeRoutingError(app *Application, req *Request, err error) {
	partial := &PartialRoute{Path: req.TargetURL.Path, Method: req.MethodName}

	var nf *router.ErrNotFound
	if errors.As(err, &nf) {
		app.Dispatch("error", partial, req, req.Worker, err)
		resp := HTML("Not Found").WithStatus(404)
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}
	var mna *router.ErrMethodNotAllowed
	if errors.As(err, &mna) {
		app.Dispatch("error", partial, req, req.Worker, err)
		resp := HTML("Method Not Allowed").WithStatus(405)
		resp.HeaderSet.Set("Allow", strings.Join(mna.Allowed, ", "))
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}
	resp := HTML("Bad Request").WithStatus(400)
	resp.write(req.w, req.Version, app.opts.IdleTimeout)
}

// keepAliveRequested applies HTTP/1.1's keep-alive-by-default and
// HTTP/1.0's close-by-default rules, per the Connection request header.
func keepAliveRequested(req *Request) bool {
	conn, _ := req.HeaderSet.Get("Connection")
	if req.Version == "HTTP/1.0" {
		return strings.EqualFold(conn, "keep-alive")
	}
	return !strings.EqualFold(conn, "close")
}

func connectionClose(h *Headers) bool {
	conn, _ := h.Get("Connection")
	return strings.EqualFold(conn, "close")
}

// handleWebSocketRoute performs the upgrade handshake, then hands off to
// the route's WebSocket handler for the connection's remaining lifetime,
// closing it (unless already closed) when the handler returns: with 1000 on
// success, 1011 on an error, or 1002 when that error is a
// *wsproto.ErrProtocol.
func handleWebSocketRoute(app *Application, worker *Worker, req *Request, route *Route, params map[string]string) {
	if mwErr := runMiddlewares(req, route, app.globalMiddlewares()); mwErr != nil {
		resp := responseForResult(app, req, route, nil, mwErr)
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}
	if req.IsClosed() {
		resp := HTML("Forbidden").WithStatus(403)
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}
	if !req.IsWebSocket() {
		resp := HTML("Bad Request").WithStatus(400)
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}

	negotiated, err := wsproto.ValidateHandshake(wsproto.HandshakeRequest{
		Method:  req.MethodName,
		Version: req.Version,
		Headers: req.HeaderSet,
	}, nil, nil)
	if err != nil {
		resp := HTML("Bad Request").WithStatus(400)
		resp.write(req.w, req.Version, app.opts.IdleTimeout)
		return
	}

	headers := wsproto.BuildAcceptResponseHeaders(negotiated)
	if err := httpwire.WritePreamble(req.w, req.Version, 101, headers, app.opts.IdleTimeout); err != nil {
		return
	}

	ws := wsproto.NewConn(req.r, req.w, negotiated)
	ws.Open()
	req.setWebSocket(ws)

	herr := route.WSHandler(req, ws, convert.New(params))
	if ws.State() != wsproto.StateClosed {
		code := uint16(wsproto.CloseNormal)
		if herr != nil {
			code = wsproto.CloseInternalError
			var protoErr *wsproto.ErrProtocol
			if errors.As(herr, &protoErr) {
				code = wsproto.CloseProtocolError
			}
		}
		ws.Close(code, "", app.opts.IdleTimeout)
	}
	if herr != nil {
		app.Dispatch("error", route, req, worker, herr)
	}
}
