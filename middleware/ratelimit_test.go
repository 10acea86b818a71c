package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wisphq/wisp"
)

func newTestRequest(t *testing.T, client string) *wisp.Request {
	t.Helper()
	req, err := wisp.NewRequest("GET", "/widgets")
	require.NoError(t, err)
	req.SetClient(client)
	return req
}

func TestRateLimit_AllowsBurstThenBlocks(t *testing.T) {
	mw := RateLimit(RateLimitOptions{Rate: rate.Limit(1), Burst: 2})

	req := newTestRequest(t, "10.0.0.1:5555")
	require.NoError(t, mw.Fn(req))
	require.NoError(t, mw.Fn(req))

	req2 := newTestRequest(t, "10.0.0.1:5555")
	err := mw.Fn(req2)
	assert.Error(t, err, "third request within the burst window is rate limited")
}

func TestRateLimit_SeparatesByClientAddress(t *testing.T) {
	mw := RateLimit(RateLimitOptions{Rate: rate.Limit(1), Burst: 1})

	a := newTestRequest(t, "10.0.0.2:1")
	require.NoError(t, mw.Fn(a))

	b := newTestRequest(t, "10.0.0.3:1")
	require.NoError(t, mw.Fn(b))
	assert.False(t, b.IsClosed())
}
