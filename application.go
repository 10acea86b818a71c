package wisp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wisphq/wisp/router"
)

// State is the Application's lifecycle state.
type State int

const (
	Created State = iota
	Started
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Started:
		return "STARTED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Options configures an Application.
type Options struct {
	Host                string
	Port                int
	URLPrefix           string
	IPv6                bool
	WorkerCount         int
	LoadSettingsFromEnv bool
	SettingEnvPrefix    string
	SuppressWarnings    bool
	UseSSL              bool
	TLSConfig           *tls.Config
	IdleTimeout         time.Duration
	Logger              *slog.Logger
}

// Application is the only process-wide state: lifecycle, registration,
// event dispatch, injection, and worker supervision all hang off one
// explicitly constructed value.
type Application struct {
	opts Options
	log  *slog.Logger

	mu          sync.RWMutex
	state       State
	routes      *router.Router[*Route]
	middlewares []*Middleware
	listeners   map[string][]*Listener
	views       map[string]View
	resources   map[string]*Resource
	injections  map[Injectable]*injection
	settings    map[string]string

	workers []*Worker

	tasksMu sync.Mutex
	tasks   map[*sync.WaitGroup]struct{}

	startupCtx    context.Context
	cancelStartup context.CancelFunc
}

// New constructs an Application in the CREATED state. Registration methods
// may be called immediately; Start binds the listening socket(s) and
// dispatches "startup".
func New(opts Options) *Application {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.WorkerCount == 0 {
		opts.WorkerCount = DefaultWorkerCount()
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	a := &Application{
		opts:       opts,
		log:        opts.Logger,
		routes:     router.New[*Route](opts.URLPrefix),
		listeners:  map[string][]*Listener{},
		views:      map[string]View{},
		resources:  map[string]*Resource{},
		injections: map[Injectable]*injection{},
		settings:   map[string]string{},
		tasks:      map[*sync.WaitGroup]struct{}{},
	}
	if opts.LoadSettingsFromEnv {
		a.loadSettingsFromEnv()
	}
	return a
}

// loadSettingsFromEnv copies every environment variable whose name carries
// the configured prefix into the settings map, upper-cased.
func (a *Application) loadSettingsFromEnv() {
	prefix := a.opts.SettingEnvPrefix
	if prefix == "" {
		prefix = "WISP_"
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		a.settings[strings.ToUpper(name)] = value
	}
}

// Settings returns the value of a previously loaded or explicitly set
// setting.
func (a *Application) Settings(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.settings[name]
	return v, ok
}

// SetSetting sets a setting explicitly; routes/middlewares/listeners are
// meant to be configured before Start, but settings carry no such
// restriction.
func (a *Application) SetSetting(name, value string) {
	a.mu.Lock()
	a.settings[name] = value
	a.mu.Unlock()
}

// State returns the current lifecycle state.
func (a *Application) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Logger returns the Application's structured logger.
func (a *Application) Logger() *slog.Logger { return a.log }

// ---- Route registration ----------------------------------------------

// AddRoute registers route, compiling its pattern with the router's prefix
// applied. Fails if (pattern, method) is already registered.
func (a *Application) AddRoute(route *Route) error {
	entry, err := a.routes.Add(route.Pattern, route.Method, route)
	if err != nil {
		return err
	}
	route.routerEntry = entry
	return nil
}

// RemoveRoute unregisters route.
func (a *Application) RemoveRoute(route *Route) bool {
	if route.routerEntry == nil {
		return false
	}
	return a.routes.Remove(route.routerEntry.Pattern.Raw, route.Method)
}

// AddRouter merges another router's routes into the application's router.
func (a *Application) AddRouter(r *router.Router[*Route]) error {
	return a.routes.Merge(r)
}

// Route is sugar for constructing and registering a HandlerFunc route.
func (a *Application) Route(pattern, method string, handler HandlerFunc, middlewares ...Middleware) (*Route, error) {
	route := &Route{Pattern: pattern, Method: method, Handler: handler, Middlewares: middlewares}
	if err := a.AddRoute(route); err != nil {
		return nil, err
	}
	return route, nil
}

func (a *Application) Get(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "GET", handler, mw...)
}
func (a *Application) Post(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "POST", handler, mw...)
}
func (a *Application) Put(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "PUT", handler, mw...)
}
func (a *Application) Delete(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "DELETE", handler, mw...)
}
func (a *Application) Head(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "HEAD", handler, mw...)
}
func (a *Application) Options(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "OPTIONS", handler, mw...)
}
func (a *Application) Patch(pattern string, handler HandlerFunc, mw ...Middleware) (*Route, error) {
	return a.Route(pattern, "PATCH", handler, mw...)
}

// WebSocket registers a WebSocket route at pattern.
func (a *Application) WebSocket(pattern string, handler WebSocketHandlerFunc, mw ...Middleware) (*Route, error) {
	route := &Route{Pattern: pattern, Method: "GET", WSHandler: handler, IsWebSocket: true, Middlewares: mw}
	if err := a.AddRoute(route); err != nil {
		return nil, err
	}
	return route, nil
}

// ---- Views --------------------------------------------------------------

// AddView registers a View's verb methods as routes at its Path.
func (a *Application) AddView(v View) error {
	a.mu.Lock()
	a.views[v.Path()] = v
	a.mu.Unlock()

	register := func(method string, handler HandlerFunc) error {
		if handler == nil {
			return nil
		}
		_, err := a.Route(v.Path(), method, handler)
		return err
	}

	if gv, ok := v.(GetView); ok {
		if err := register("GET", gv.Get); err != nil {
			return err
		}
	}
	if pv, ok := v.(PostView); ok {
		if err := register("POST", pv.Post); err != nil {
			return err
		}
	}
	if pv, ok := v.(PutView); ok {
		if err := register("PUT", pv.Put); err != nil {
			return err
		}
	}
	if dv, ok := v.(DeleteView); ok {
		if err := register("DELETE", dv.Delete); err != nil {
			return err
		}
	}
	if pv, ok := v.(PatchView); ok {
		if err := register("PATCH", pv.Patch); err != nil {
			return err
		}
	}
	if hv, ok := v.(HeadView); ok {
		if err := register("HEAD", hv.Head); err != nil {
			return err
		}
	}
	if ov, ok := v.(OptionsView); ok {
		if err := register("OPTIONS", ov.Options); err != nil {
			return err
		}
	}
	return nil
}

// RemoveView forgets the view previously added at path; the routes AddView
// registered for it stay in the router.
func (a *Application) RemoveView(path string) {
	a.mu.Lock()
	delete(a.views, path)
	a.mu.Unlock()
}

// GetView returns the view registered at path, if any.
func (a *Application) GetView(path string) (View, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.views[path]
	return v, ok
}

// ---- Resources ------------------------------------------------------------

// AddResource registers a named, addressable object retrievable by
// application code.
func (a *Application) AddResource(name string, value any) *Resource {
	r := &Resource{Name: name, Value: value}
	a.mu.Lock()
	a.resources[name] = r
	a.mu.Unlock()
	return r
}

// RemoveResource unregisters the named resource.
func (a *Application) RemoveResource(name string) {
	a.mu.Lock()
	delete(a.resources, name)
	a.mu.Unlock()
}

// GetResource looks up a previously registered resource by name.
func (a *Application) GetResource(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.resources[name]
	if !ok {
		return nil, false
	}
	return r.Value, true
}

// ---- Listeners / dispatch -------------------------------------------------

// AddEventListener registers l for event l.Name.
func (a *Application) AddEventListener(l *Listener) {
	a.mu.Lock()
	a.listeners[l.Name] = append(a.listeners[l.Name], l)
	a.mu.Unlock()
}

// RemoveEventListener unregisters l.
func (a *Application) RemoveEventListener(l *Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ls := a.listeners[l.Name]
	for i, existing := range ls {
		if existing == l {
			a.listeners[l.Name] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// On is sugar for constructing and registering a Listener.
func (a *Application) On(name string, fn func(args ...any)) *Listener {
	l := &Listener{Name: name, Fn: fn}
	a.AddEventListener(l)
	return l
}

// Dispatch fires every listener registered for name as an independent,
// tracked goroutine; listener panics/errors are logged, never propagated.
func (a *Application) Dispatch(name string, args ...any) {
	a.mu.RLock()
	ls := append([]*Listener(nil), a.listeners[name]...)
	a.mu.RUnlock()

	var wg sync.WaitGroup
	a.tasksMu.Lock()
	a.tasks[&wg] = struct{}{}
	a.tasksMu.Unlock()

	for _, l := range ls {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("listener panicked", "event", name, "panic", r)
				}
			}()
			l.Fn(args...)
		}(l)
	}

	go func() {
		wg.Wait()
		a.tasksMu.Lock()
		delete(a.tasks, &wg)
		a.tasksMu.Unlock()
	}()
}

// ---- Middlewares -----------------------------------------------------------

// AddMiddleware registers a global middleware.
func (a *Application) AddMiddleware(m *Middleware) {
	m.Scope = ScopeGlobal
	a.mu.Lock()
	a.middlewares = append(a.middlewares, m)
	a.mu.Unlock()
}

// RemoveMiddleware unregisters m.
func (a *Application) RemoveMiddleware(m *Middleware) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.middlewares {
		if existing == m {
			a.middlewares = append(a.middlewares[:i], a.middlewares[i+1:]...)
			return
		}
	}
}

func (a *Application) globalMiddlewares() []*Middleware {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Middleware(nil), a.middlewares...)
}

// ---- Lifecycle --------------------------------------------------------

// Start binds the listening socket(s), installs workers, and dispatches
// "startup". Re-entry after Close is undefined.
func (a *Application) Start() error {
	a.mu.Lock()
	if a.state != Created {
		a.mu.Unlock()
		return fmt.Errorf("wisp: Start called in state %s, want %s", a.state, Created)
	}
	a.state = Started
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	a.startupCtx = ctx
	a.cancelStartup = cancel

	workers, err := startWorkers(a, ctx)
	if err != nil {
		cancel()
		return err
	}
	a.workers = workers

	a.Dispatch("startup")
	return nil
}

// Run calls Start, blocks until shutdownSignal delivers a value (e.g. a
// channel registered with signal.Notify for SIGINT/SIGTERM), then calls
// Close with a 10 s grace period — a single-binary convenience.
func (a *Application) Run(shutdownSignal <-chan os.Signal) error {
	if err := a.Start(); err != nil {
		return err
	}
	<-shutdownSignal
	return a.Close(10 * time.Second)
}

// Close cancels worker tasks, awaits their stop (bounded by grace), sets
// CLOSED, and dispatches "shutdown".
func (a *Application) Close(grace time.Duration) error {
	a.mu.Lock()
	if a.state != Started {
		a.mu.Unlock()
		return fmt.Errorf("wisp: Close called in state %s, want %s", a.state, Started)
	}
	a.state = Closed
	workers := a.workers
	a.mu.Unlock()

	if a.cancelStartup != nil {
		a.cancelStartup()
	}

	deadline := time.Now().Add(grace)
	for _, w := range workers {
		w.shutdown(deadline)
	}

	a.Dispatch("shutdown")

	a.tasksMu.Lock()
	pending := make([]*sync.WaitGroup, 0, len(a.tasks))
	for wg := range a.tasks {
		pending = append(pending, wg)
	}
	a.tasksMu.Unlock()
	for _, wg := range pending {
		wg.Wait()
	}
	return nil
}

// DefaultWorkerCount returns 2*NumCPU+1, a sizing rule generous enough to
// keep accept-loop goroutines from starving each other on a busy host.
func DefaultWorkerCount() int {
	return 2*runtime.NumCPU() + 1
}

func formatAddr(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return host + ":" + strconv.Itoa(port)
}
