package wisp

import (
	"github.com/wisphq/wisp/convert"
	"github.com/wisphq/wisp/router"
)

// Params is the argument converter's typed view over a route's captured
// path parameters.
type Params = convert.Params

// HandlerFunc is an ordinary route handler. Its return value is converted
// to a Response by parseResponse: strings become HTML, maps/slices become
// JSON, a *Response passes through unchanged, and so on.
type HandlerFunc func(req *Request, params *Params) (any, error)

// WebSocketHandlerFunc handles a connection that has already completed the
// WebSocket upgrade handshake.
type WebSocketHandlerFunc func(req *Request, ws *WebSocket, params *Params) error

// Scope distinguishes route-local middleware from application-global
// middleware.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeRoute
)

// Middleware is (callback, scope); route middlewares are listed before
// global ones, both in registration order, and all of a request's
// middlewares run concurrently.
type Middleware struct {
	Name  string
	Scope Scope
	Fn    MiddlewareFunc
}

// MiddlewareFunc runs before the handler. It aborts the pipeline by calling
// req.Close() (or req.Respond) or by returning an error such as
// req.Abort(...); the connection handler checks for these once all
// middlewares have completed.
type MiddlewareFunc func(req *Request) error

// Route is (pattern, method, handler, middlewares, optional after-request
// callback, optional websocket flag, attached router back-reference).
type Route struct {
	Pattern       string
	Method        string
	Handler       HandlerFunc
	WSHandler     WebSocketHandlerFunc
	IsWebSocket   bool
	Middlewares   []Middleware
	AfterRequest  func(req *Request, resp *Response)
	routerEntry   *router.Entry[*Route]
}

// Listener is (event name, callback).
type Listener struct {
	Name string
	Fn   func(args ...any)
}

// View is a struct whose methods named Get/Post/Put/Delete/... become
// routes at a single path. Rather than reflection over method names, a
// View implements whichever of these interfaces its verbs need.
type View interface {
	Path() string
}

type GetView interface {
	View
	Get(req *Request, params *Params) (any, error)
}
type PostView interface {
	View
	Post(req *Request, params *Params) (any, error)
}
type PutView interface {
	View
	Put(req *Request, params *Params) (any, error)
}
type DeleteView interface {
	View
	Delete(req *Request, params *Params) (any, error)
}
type PatchView interface {
	View
	Patch(req *Request, params *Params) (any, error)
}
type HeadView interface {
	View
	Head(req *Request, params *Params) (any, error)
}
type OptionsView interface {
	View
	Options(req *Request, params *Params) (any, error)
}

// PartialRoute is a placeholder (path, method) pair used to report errors
// when routing has not yet resolved to a real Route.
type PartialRoute struct {
	Path   string
	Method string
}

// Resource is a named, addressable object (a shared connection pool, cache
// handle, etc.) retrievable by application code — a second registration
// surface alongside Views.
type Resource struct {
	Name  string
	Value any
}
