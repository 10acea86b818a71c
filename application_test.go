package wisp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplication_New_Defaults(t *testing.T) {
	a := New(Options{})
	assert.Equal(t, Created, a.State())
	assert.Equal(t, 8080, a.opts.Port)
	assert.Equal(t, DefaultWorkerCount(), a.opts.WorkerCount)
	assert.Equal(t, 60*time.Second, a.opts.IdleTimeout)
}

func TestApplication_RouteRegistration(t *testing.T) {
	a := newTestApp()
	route, err := a.Get("/widgets/{id}", func(req *Request, params *Params) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "GET", route.Method)

	_, err = a.Get("/widgets/{id}", func(req *Request, params *Params) (any, error) { return nil, nil })
	assert.Error(t, err, "duplicate (pattern, method) must fail")

	assert.True(t, a.RemoveRoute(route))
	assert.False(t, a.RemoveRoute(route), "removing twice reports false")
}

func TestApplication_WebSocketRegistration(t *testing.T) {
	a := newTestApp()
	route, err := a.WebSocket("/ws", func(req *Request, ws *WebSocket, params *Params) error { return nil })
	require.NoError(t, err)
	assert.True(t, route.IsWebSocket)
	assert.Equal(t, "GET", route.Method)
}

type pingView struct{}

func (pingView) Path() string { return "/ping" }
func (pingView) Get(req *Request, params *Params) (any, error) {
	return "pong", nil
}
func (pingView) Post(req *Request, params *Params) (any, error) {
	return "created", nil
}

func TestApplication_AddView(t *testing.T) {
	a := newTestApp()
	v := pingView{}
	require.NoError(t, a.AddView(v))

	got, ok := a.GetView("/ping")
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, route, err := a.routes.Resolve("GET", "/ping")
	require.NoError(t, err)
	assert.Equal(t, "GET", route.Method)
	_, route, err = a.routes.Resolve("POST", "/ping")
	require.NoError(t, err)
	assert.Equal(t, "POST", route.Method)

	a.RemoveView("/ping")
	_, ok = a.GetView("/ping")
	assert.False(t, ok)
}

func TestApplication_Resources(t *testing.T) {
	a := newTestApp()
	a.AddResource("cache", 42)

	v, ok := a.GetResource("cache")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	a.RemoveResource("cache")
	_, ok = a.GetResource("cache")
	assert.False(t, ok)
}

func TestApplication_Dispatch(t *testing.T) {
	a := newTestApp()
	var mu sync.Mutex
	var got []any

	a.On("greeting", func(args ...any) {
		mu.Lock()
		got = append(got, args...)
		mu.Unlock()
	})

	a.Dispatch("greeting", "hello")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)
}

func TestApplication_Dispatch_ListenerPanicIsRecovered(t *testing.T) {
	a := newTestApp()
	done := make(chan struct{})
	a.On("boom", func(args ...any) {
		defer close(done)
		panic("listener exploded")
	})

	a.Dispatch("boom")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener never ran")
	}
}

func TestApplication_Middlewares(t *testing.T) {
	a := newTestApp()
	mw := &Middleware{Name: "test", Fn: func(req *Request) error { return nil }}
	a.AddMiddleware(mw)
	assert.Len(t, a.globalMiddlewares(), 1)
	assert.Equal(t, ScopeGlobal, mw.Scope)

	a.RemoveMiddleware(mw)
	assert.Len(t, a.globalMiddlewares(), 0)
}

type pingInjectable struct {
	route *Route
}

func (p *pingInjectable) Routes() []*Route {
	return []*Route{{Pattern: "/inj", Method: "GET", Handler: func(req *Request, params *Params) (any, error) {
		return "ok", nil
	}}}
}
func (p *pingInjectable) Listeners() []*Listener    { return nil }
func (p *pingInjectable) Middlewares() []*Middleware { return nil }

func TestApplication_InjectAndEject(t *testing.T) {
	a := newTestApp()
	obj := &pingInjectable{}
	require.NoError(t, a.Inject(obj))

	_, _, err := a.routes.Resolve("GET", "/inj")
	require.NoError(t, err)

	a.Eject(obj)
	_, _, err = a.routes.Resolve("GET", "/inj")
	assert.Error(t, err)
}

func TestApplication_Settings(t *testing.T) {
	a := newTestApp()
	a.SetSetting("WISP_FOO", "bar")
	v, ok := a.Settings("WISP_FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestApplication_CloseBeforeStart(t *testing.T) {
	a := newTestApp()
	err := a.Close(time.Second)
	assert.Error(t, err, "Close before Start must fail")
}
