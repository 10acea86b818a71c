package wisp

// Injectable carries declarative lists of routes, listeners, and
// middlewares that get bound to a receiver object and registered on the
// Application atomically.
//
// Each returned Route/Listener/Middleware closes over obj already — Go has
// no dynamic "first argument rebinding" to do, so Injectable simply lists
// the bound callbacks the receiver wants registered.
type Injectable interface {
	Routes() []*Route
	Listeners() []*Listener
	Middlewares() []*Middleware
}

// injection records what Inject registered for obj, so Eject can remove
// exactly that and nothing else.
type injection struct {
	routes      []*Route
	listeners   []*Listener
	middlewares []*Middleware
}

// Inject registers every route, listener, and middleware obj declares and
// remembers the registration so Eject(obj) can undo it exactly.
func (a *Application) Inject(obj Injectable) error {
	rec := &injection{
		routes:      obj.Routes(),
		listeners:   obj.Listeners(),
		middlewares: obj.Middlewares(),
	}

	for _, r := range rec.routes {
		if err := a.AddRoute(r); err != nil {
			a.unwindInjection(rec)
			return err
		}
	}
	for _, l := range rec.listeners {
		a.AddEventListener(l)
	}
	for _, m := range rec.middlewares {
		a.AddMiddleware(m)
	}

	a.mu.Lock()
	a.injections[obj] = rec
	a.mu.Unlock()
	return nil
}

// Eject unregisters every entry injection previously registered for obj,
// restoring prior registration state exactly.
func (a *Application) Eject(obj Injectable) {
	a.mu.Lock()
	rec, ok := a.injections[obj]
	delete(a.injections, obj)
	a.mu.Unlock()
	if !ok {
		return
	}
	a.unwindInjection(rec)
}

func (a *Application) unwindInjection(rec *injection) {
	for _, r := range rec.routes {
		a.RemoveRoute(r)
	}
	for _, l := range rec.listeners {
		a.RemoveEventListener(l)
	}
	for _, m := range rec.middlewares {
		a.RemoveMiddleware(m)
	}
}
