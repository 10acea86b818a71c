// Command wispd is a small demo server exercising wisp's routing, JSON
// handlers, and WebSocket echo: construct the application, register routes
// and middleware, then block until a shutdown signal arrives.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/wisphq/wisp"
	"github.com/wisphq/wisp/authtoken"
	"github.com/wisphq/wisp/config"
	"github.com/wisphq/wisp/middleware"
)

// Widget is the demo's one JSON resource.
type Widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (Widget) IsModel() {}

type widgetStore struct {
	mu      sync.Mutex
	widgets map[string]Widget
}

func newWidgetStore() *widgetStore {
	return &widgetStore{widgets: map[string]Widget{
		"1": {ID: "1", Name: "sprocket"},
		"2": {ID: "2", Name: "gear"},
	}}
}

func (s *widgetStore) get(id string) (Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.widgets[id]
	return w, ok
}

func (s *widgetStore) put(w Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets[w.ID] = w
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("booting wispd")

	cfg := config.Load()
	tokens := authtoken.New(cfg.JWTSecret, "wispd")

	app := wisp.New(wisp.Options{
		Host:        cfg.Host,
		Port:        cfg.Port,
		IdleTimeout: cfg.IdleTimeout,
		Logger:      logger,
	})

	app.On("error", func(args ...any) {
		if len(args) >= 3 {
			logger.Error("request failed", "route", args[0], "error", args[len(args)-1])
		}
	})
	app.On("startup", func(args ...any) { logger.Info("wispd listening", "host", cfg.Host, "port", cfg.Port) })
	app.On("shutdown", func(args ...any) { logger.Info("wispd stopped") })

	app.AddMiddleware(middleware.RealIP())
	app.AddMiddleware(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	app.AddMiddleware(middleware.RateLimit(middleware.RateLimitOptions{
		Rate:  rate.Limit(cfg.RateLimitRPS),
		Burst: int(cfg.RateLimitRPS) * 3,
	}))

	store := newWidgetStore()

	if _, err := app.Get("/healthz", func(req *wisp.Request, params *wisp.Params) (any, error) {
		return wisp.WithStatus(map[string]string{"status": "ok"}, 200), nil
	}); err != nil {
		logger.Error("route registration failed", "error", err)
		os.Exit(1)
	}

	if _, err := app.Post("/token", func(req *wisp.Request, params *wisp.Params) (any, error) {
		var body struct {
			Subject string `json:"subject"`
		}
		if err := req.JSON(&body, true, 5*time.Second); err != nil {
			return nil, req.Abort(400, "invalid JSON body")
		}
		token, err := tokens.Mint(body.Subject, "", "", nil, time.Hour, time.Now())
		if err != nil {
			return nil, err
		}
		return map[string]string{"token": token}, nil
	}); err != nil {
		logger.Error("route registration failed", "error", err)
		os.Exit(1)
	}

	if _, err := app.Get("/widgets/{id}", func(req *wisp.Request, params *wisp.Params) (any, error) {
		id, ok := params.Str("id")
		if !ok {
			return nil, req.Abort(400, "missing id")
		}
		w, ok := store.get(id)
		if !ok {
			return nil, req.Abort(404, "no such widget")
		}
		return w, nil
	}); err != nil {
		logger.Error("route registration failed", "error", err)
		os.Exit(1)
	}

	if _, err := app.Put("/widgets/{id}", func(req *wisp.Request, params *wisp.Params) (any, error) {
		id, ok := params.Str("id")
		if !ok {
			return nil, req.Abort(400, "missing id")
		}
		var w Widget
		if err := req.JSON(&w, true, 5*time.Second); err != nil {
			return nil, req.Abort(400, "invalid JSON body")
		}
		w.ID = id
		store.put(w)
		return w, nil
	}); err != nil {
		logger.Error("route registration failed", "error", err)
		os.Exit(1)
	}

	if _, err := app.WebSocket("/ws/echo", func(req *wisp.Request, ws *wisp.WebSocket, params *wisp.Params) error {
		for {
			msg, err := ws.ReadMessage(0)
			if err != nil {
				return nil
			}
			if err := ws.WriteMessage(msg.Opcode, msg.Payload, 0); err != nil {
				return err
			}
		}
	}); err != nil {
		logger.Error("route registration failed", "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	if err := app.Run(stop); err != nil {
		logger.Error("wispd exited with error", "error", err)
		os.Exit(1)
	}
}
