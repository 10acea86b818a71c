package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recoverer bridges chi/v5's panic-recovery middleware. Because wisp already
// recovers handler and middleware panics directly in its connection loop
// (turning them into a generic 500 and an "error" event), this bridge is
// most useful composed with another net/http-shaped middleware ahead of it
// in the same chain — e.g. wrapping a third-party library's handler that
// this package doesn't have its own bridge for yet.
func Recoverer() *Middleware {
	return newBridgeMiddleware("recoverer", chimw.Recoverer)
}
