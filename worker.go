package wisp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"
)

// Worker owns an accept loop over a listening socket shared with its
// sibling workers; the kernel (and Go's runtime, for calls on the same
// net.Listener) arbitrates which worker receives each accepted connection.
type Worker struct {
	ID       int
	app      *Application
	listener net.Listener

	mu      sync.Mutex
	serving bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// startWorkers builds the application's listening socket(s) — one, or two
// for dual-stack IPv4/IPv6 — and spawns opts.WorkerCount accept-loop
// goroutines partitioned across them.
func startWorkers(a *Application, ctx context.Context) ([]*Worker, error) {
	listeners, err := buildListeners(a.opts)
	if err != nil {
		return nil, err
	}

	workers := make([]*Worker, 0, a.opts.WorkerCount)
	for i := 0; i < a.opts.WorkerCount; i++ {
		ln := listeners[i%len(listeners)]
		w := &Worker{ID: i, app: a, listener: ln, serving: true, conns: map[net.Conn]struct{}{}}
		workers = append(workers, w)
		go w.acceptLoop(ctx)
	}
	return workers, nil
}

// buildListeners creates one listening socket, or two for dual-stack mode
// (one tcp4, one tcp6).
func buildListeners(opts Options) ([]net.Listener, error) {
	addr := formatAddr(opts.Host, opts.Port)

	if !opts.IPv6 {
		ln, err := listenOne(addr, opts)
		if err != nil {
			return nil, err
		}
		return []net.Listener{ln}, nil
	}

	v4, err := listenOne(formatAddr(orDefault(opts.Host, "0.0.0.0"), opts.Port), opts)
	if err != nil {
		return nil, err
	}
	v6, err := listenOne(formatAddr(orDefault(opts.Host, "::"), opts.Port), opts)
	if err != nil {
		v4.Close()
		return nil, err
	}
	return []net.Listener{v4, v6}, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func listenOne(addr string, opts Options) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if opts.UseSSL {
		cfg := opts.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		return tls.NewListener(ln, cfg), nil
	}
	return ln, nil
}

// acceptLoop accepts connections until the listener closes or ctx is
// cancelled, spawning a connection handler goroutine for each one.
func (w *Worker) acceptLoop(ctx context.Context) {
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			w.app.log.Warn("accept error", "worker", w.ID, "error", err)
			continue
		}

		w.mu.Lock()
		if !w.serving {
			w.mu.Unlock()
			conn.Close()
			continue
		}
		w.conns[conn] = struct{}{}
		w.wg.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.wg.Done()
			defer func() {
				w.mu.Lock()
				delete(w.conns, conn)
				w.mu.Unlock()
			}()
			handleConnection(ctx, w.app, w, conn)
		}()
	}
}

// shutdown stops accepting and waits for in-flight connection handlers to
// finish. Connections still open at deadline are closed, after which it
// waits, without a further bound, for their handlers to return.
func (w *Worker) shutdown(deadline time.Time) {
	w.mu.Lock()
	w.serving = false
	w.mu.Unlock()

	w.listener.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Until(deadline)):
	}

	w.mu.Lock()
	for conn := range w.conns {
		conn.Close()
	}
	w.mu.Unlock()
	<-done
}

// LiveConnections returns the number of connections this worker currently
// owns.
func (w *Worker) LiveConnections() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}
