package middleware

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wisphq/wisp"
)

// PasswordLookup returns the bcrypt hash on file for username, and whether
// that username exists at all.
type PasswordLookup func(username string) (hash []byte, ok bool)

// BasicAuth checks an "Authorization: Basic ..." header against bcrypt
// hashes supplied by lookup — a simpler credential check than a full JWT
// bearer token, for routes that don't need session state (health checks
// behind a basic-auth reverse proxy rule, admin debug endpoints).
func BasicAuth(realm string, lookup PasswordLookup) *Middleware {
	return &Middleware{
		Name: "basic-auth",
		Fn: func(req *wisp.Request) error {
			header, ok := req.Headers().Get("Authorization")
			username, password, ok2 := parseBasicAuth(header)
			if !ok || !ok2 {
				return unauthorized(req, realm)
			}

			hash, ok := lookup(username)
			if !ok {
				return unauthorized(req, realm)
			}
			if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
				return unauthorized(req, realm)
			}
			return nil
		},
	}
}

func parseBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	username, password, found := strings.Cut(string(decoded), ":")
	return username, password, found
}

func unauthorized(req *wisp.Request, realm string) error {
	resp := wisp.HTML("Unauthorized").WithStatus(401)
	resp.HeaderSet.Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	req.Respond(resp)
	return nil
}
