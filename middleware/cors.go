package middleware

import (
	"github.com/go-chi/cors"

	"github.com/wisphq/wisp/internal/nethttpcompat"
)

// CORSOptions mirrors the subset of go-chi/cors.Options a wisp application
// typically needs to set.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS bridges go-chi/cors's negotiation logic into a wisp middleware. A
// preflight OPTIONS request never reaches the route's handler: cors.Handler
// answers it directly, and the bridge turns that answer into req.Respond.
// A normal request instead gets its CORS response headers merged onto
// whatever the handler eventually returns.
func CORS(opts CORSOptions) *Middleware {
	wrap := cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   opts.ExposedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	})

	return newBridgeMiddleware("cors", wrap)
}
