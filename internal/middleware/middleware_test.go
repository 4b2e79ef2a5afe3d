package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/ctxkeys"
	"github.com/templui/fractional/internal/model"
	"golang.org/x/time/rate"
)

type fakeAuth struct {
	tokens  map[string]*model.User
	cleared bool
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if u, ok := f.tokens[token]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, errors.New("invalid token")
}

func (f *fakeAuth) ClearJWTCookie(http.ResponseWriter) { f.cleared = true }

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(user.ID + "/" + ctxkeys.AuthMethod(r.Context())))
}

func TestAuthMiddleware(t *testing.T) {
	hash := "secret-hash"
	auth := &fakeAuth{tokens: map[string]*model.User{
		"good": {ID: "u1", Email: "a@example.com", PasswordHash: &hash},
	}}
	h := AuthMiddleware(auth)(http.HandlerFunc(whoAmI))

	tests := []struct {
		name    string
		setup   func(r *http.Request)
		want    string
		cleared bool
	}{
		{"no credentials", func(*http.Request) {}, "anonymous", false},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, "u1/bearer", false},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: "good"}) }, "u1/cookie", false},
		{"bad cookie is cleared", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: "bad"}) }, "anonymous", true},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, "anonymous", false},
		{"other scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, "anonymous", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.cleared = false
			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			tt.setup(r)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Body.String())
			assert.Equal(t, tt.cleared, auth.cleared)
		})
	}
}

func TestAuthMiddleware_StripsPasswordHash(t *testing.T) {
	hash := "secret-hash"
	auth := &fakeAuth{tokens: map[string]*model.User{"good": {ID: "u1", PasswordHash: &hash}}}

	var seen *model.User
	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.User(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, seen)
	assert.Nil(t, seen.PasswordHash)
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"authentication required"}`, w.Body.String())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: "u1"}))
	w = httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFProtection(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := CSRFProtection(ok)

	withCookieSession := func(r *http.Request) *http.Request {
		ctx := ctxkeys.WithUser(r.Context(), &model.User{ID: "u1"})
		return r.WithContext(ctxkeys.WithAuthMethod(ctx, ctxkeys.AuthMethodCookie))
	}

	// GET issues a token
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0].Value

	t.Run("cookie session without header", func(t *testing.T) {
		r := withCookieSession(httptest.NewRequest(http.MethodPost, "/api/goals", nil))
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cookie session with matching header", func(t *testing.T) {
		r := withCookieSession(httptest.NewRequest(http.MethodPost, "/api/goals", nil))
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		r.Header.Set(csrfHeader, token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("bearer clients are exempt", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/goals", nil)
		r = r.WithContext(ctxkeys.WithAuthMethod(r.Context(), ctxkeys.AuthMethodBearer))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("webhooks are exempt", func(t *testing.T) {
		r := withCookieSession(httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader("{}")))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Every(time.Minute), 2, time.Hour)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"), "one token refilled")

	now = now.Add(2 * time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1, time.Hour)
	h := rl.Middleware(ClientIP(nil))(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	r.RemoteAddr = "9.9.9.9:4242"

	w := httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// A forged header does not buy a fresh bucket.
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	w = httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "no proxies configured", remote: "9.9.9.9:1234", xff: "1.1.1.1", want: "9.9.9.9"},
		{name: "untrusted peer", trusted: trusted, remote: "9.9.9.9:1234", xff: "1.1.1.1", want: "9.9.9.9"},
		{name: "trusted peer", trusted: trusted, remote: "10.0.0.2:1234", xff: "1.1.1.1", want: "1.1.1.1"},
		{name: "spoofed left hop ignored", trusted: trusted, remote: "10.0.0.2:1234", xff: "6.6.6.6, 1.1.1.1, 10.0.0.5", want: "1.1.1.1"},
		{name: "garbage hop", trusted: trusted, remote: "10.0.0.2:1234", xff: "nonsense", want: "10.0.0.2"},
		{name: "real ip header", trusted: trusted, remote: "10.0.0.2:1234", realIP: "2.2.2.2", want: "2.2.2.2"},
		{name: "ipv6 peer", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(tt.trusted)(r))
		})
	}
}

func TestRequestLogging_RecordsRoute(t *testing.T) {
	var called bool
	inner := Route("GET /api/goals/{month}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner(w, r)
		called = true
	}), RequestID, RequestLogging)

	r := httptest.NewRequest(http.MethodGet, "/api/goals/2026-10", nil)
	r.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	assert.True(t, called)
}

func TestRequestID_Generated(t *testing.T) {
	var id string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = ctxkeys.RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Header().Get(requestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}
