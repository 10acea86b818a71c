package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp"
)

func TestCORS_PreflightIsAnsweredDirectly(t *testing.T) {
	mw := CORS(CORSOptions{
		AllowedOrigins: []string{"https://widgets.example"},
		AllowedMethods: []string{"GET", "POST"},
	})

	req, err := wisp.NewRequest("OPTIONS", "/widgets")
	require.NoError(t, err)
	req.Headers().Set("Origin", "https://widgets.example")
	req.Headers().Set("Access-Control-Request-Method", "POST")

	require.NoError(t, mw.Fn(req))
	assert.True(t, req.IsClosed())
}

func TestCORS_SimpleRequestPassesThroughWithHeaders(t *testing.T) {
	mw := CORS(CORSOptions{
		AllowedOrigins: []string{"https://widgets.example"},
		AllowedMethods: []string{"GET"},
	})

	req, err := wisp.NewRequest("GET", "/widgets")
	require.NoError(t, err)
	req.Headers().Set("Origin", "https://widgets.example")

	require.NoError(t, mw.Fn(req))
	assert.False(t, req.IsClosed())
}
