package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/mw"
)

func limitedRouter(t *testing.T, trusted []string) http.Handler {
	t.Helper()
	s := newTestStore(t)
	return NewRouter(Dependencies{
		Store:          s,
		Controller:     lifecycle.New(s),
		RateLimiter:    mw.NewIPRateLimiter(rate.Limit(0.001), 1),
		TrustedProxies: trusted,
	})
}

// listFrom issues GET /api/entries from the test client address
// (192.0.2.1) with the given X-Forwarded-For value.
func listFrom(r http.Handler, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("X-Forwarded-For", forwardedFor)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	r := limitedRouter(t, nil)

	assert.Equal(t, http.StatusOK, listFrom(r, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, listFrom(r, "203.0.113.2"))
}

func TestRateLimit_TrustedProxyForwardsClientAddress(t *testing.T) {
	r := limitedRouter(t, []string{"192.0.2.1"})

	assert.Equal(t, http.StatusOK, listFrom(r, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, listFrom(r, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, listFrom(r, "203.0.113.1"))
}
