package middleware

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisphq/wisp"
)

func basicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestBasicAuth_CorrectCredentialsPassThrough(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mw := BasicAuth("widgets", func(username string) ([]byte, bool) {
		if username != "admin" {
			return nil, false
		}
		return hash, true
	})

	req, err := wisp.NewRequest("GET", "/admin")
	require.NoError(t, err)
	req.Headers().Set("Authorization", basicAuthHeader("admin", "hunter2"))

	require.NoError(t, mw.Fn(req))
	assert.False(t, req.IsClosed())
}

func TestBasicAuth_WrongPasswordIsRejected(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mw := BasicAuth("widgets", func(username string) ([]byte, bool) {
		return hash, true
	})

	req, err := wisp.NewRequest("GET", "/admin")
	require.NoError(t, err)
	req.Headers().Set("Authorization", basicAuthHeader("admin", "wrong"))

	require.NoError(t, mw.Fn(req))
	assert.True(t, req.IsClosed())
}

func TestBasicAuth_MissingHeaderIsRejected(t *testing.T) {
	mw := BasicAuth("widgets", func(username string) ([]byte, bool) {
		return nil, false
	})

	req, err := wisp.NewRequest("GET", "/admin")
	require.NoError(t, err)

	require.NoError(t, mw.Fn(req))
	assert.True(t, req.IsClosed())
}
