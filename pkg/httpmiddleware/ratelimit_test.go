package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, configure func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if configure != nil {
		configure(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func fromAddr(addr string) func(*http.Request) {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func TestLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("ann").Allowed)
	d := l.Allow("ann")
	require.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, l.Allow("ann").Allowed)
	assert.True(t, l.Allow("bob").Allowed, "keys are independent")

	// Half way into the next window the previous two events still weigh one.
	now = now.Add(90 * time.Second)
	assert.True(t, l.Allow("ann").Allowed)
	assert.False(t, l.Allow("ann").Allowed)

	// Two full windows later everything is forgotten.
	now = now.Add(3 * time.Minute)
	assert.True(t, l.Allow("ann").Allowed)
	assert.True(t, l.Allow("ann").Allowed)
}

func TestLimiter_ResetAndCleanup(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	l := NewLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("ann")
	require.False(t, l.Allow("ann").Allowed)
	l.Reset("ann")
	assert.True(t, l.Allow("ann").Allowed)

	l.Allow("bob")
	assert.Equal(t, 2, l.Len())
	l.cleanup(now.Add(2 * time.Minute))
	assert.Zero(t, l.Len())
}

func TestLimiter_RunCleanupZeroWindow(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewLimiter(1, 0).RunCleanup(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return for a zero window")
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := RateLimit(ctx, RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := serve(handler, fromAddr("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := serve(handler, fromAddr("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var (
		code    int
		message string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "message":
			message, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", message)

	assert.Equal(t, http.StatusOK, serve(handler, fromAddr("10.0.0.2:1234")).Code, "other clients unaffected")
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := RateLimit(ctx, RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("Authorization") },
	})(okHandler())
	withAuth := func(v string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", v) }
	}

	assert.Equal(t, http.StatusOK, serve(handler, withAuth("a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, withAuth("a")).Code)
	assert.Equal(t, http.StatusOK, serve(handler, withAuth("b")).Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.168.1.1:4444", want: "192.168.1.1"},
		{name: "forwarded for", remote: "192.168.1.1:4444", headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: "203.0.113.50"},
		{name: "real ip", remote: "192.168.1.1:4444", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
		{name: "no port", remote: "unix", want: "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
