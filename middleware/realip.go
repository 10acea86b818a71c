package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RealIP resolves the client's true address from X-Forwarded-For/X-Real-IP,
// bridging chi/v5's battle-tested RealIP so requests behind a reverse proxy
// (Nginx, Caddy, Cloudflare) report the actual visitor, not the proxy.
// Register it global; the handler then sees the resolved address via
// Request.Client(). A request's middlewares run concurrently, so another
// middleware (such as RateLimit) may read Request.Client() before RealIP
// has updated it.
func RealIP() *Middleware {
	return newBridgeMiddleware("real-ip", chimw.RealIP)
}
