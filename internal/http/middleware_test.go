package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolvePrincipal(t *testing.T) {
	var got application.Principal
	handler := ResolvePrincipal(adminPIN("9999"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set(AdminPINHeader, "9999")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, application.Principal{Admin: true, ClientID: "10.0.0.7"}, got)

	req = httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.RemoteAddr = "10.0.0.8"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, application.Principal{ClientID: "10.0.0.8"}, got)
}

func TestRateLimitMutations(t *testing.T) {
	t.Run("throttles mutations per client", func(t *testing.T) {
		handler := RateLimitMutations(2, nil)(okHandler())

		post := func(addr string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/reservations", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		assert.Equal(t, http.StatusOK, post("10.0.0.1:1").Code)
		assert.Equal(t, http.StatusOK, post("10.0.0.1:2").Code)

		rec := post("10.0.0.1:3")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RATE_LIMITED", decode(t, rec)["error_code"])

		assert.Equal(t, http.StatusOK, post("10.0.0.2:1").Code, "other clients keep their own budget")
	})

	t.Run("reads are never throttled", func(t *testing.T) {
		handler := RateLimitMutations(1, nil)(okHandler())
		for range 5 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("reads with an admin pin share the mutation budget", func(t *testing.T) {
		handler := RateLimitMutations(3, nil)(okHandler())
		get := func(pin string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
			req.RemoteAddr = "10.0.0.7:4000"
			req.Header.Set(AdminPINHeader, pin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		for _, pin := range []string{"0000", "0001", "0002"} {
			assert.Equal(t, http.StatusOK, get(pin).Code)
		}
		rec := get("0003")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RATE_LIMITED", decode(t, rec)["error_code"])

		plain := httptest.NewRequest(http.MethodGet, "/resources", nil)
		plain.RemoteAddr = "10.0.0.7:4001"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, plain)
		assert.Equal(t, http.StatusOK, rec.Code, "reads without a pin stay unthrottled")
	})

	t.Run("zero disables throttling", func(t *testing.T) {
		handler := RateLimitMutations(0, nil)(okHandler())
		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/reservations/r1", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRequireBearerToken(t *testing.T) {
	handler := RequireBearerToken("s3cret", nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="Metrics"`, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	RequireBearerToken("", nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/resources/abc/enabled", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/resources/{id}/enabled", "409")))
}

func TestRouteLabel(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/resources", "/resources"},
		{"/resources/ps5-1", "/resources/{id}"},
		{"/resources/ps5-1/next-slot", "/resources/{id}/next-slot"},
		{"/resources/ps5-1/anything", "unknown"},
		{"/reservations/r1/validate", "/reservations/{id}/validate"},
		{"/tokens/8000001", "/tokens/{token}"},
		{"/healthz", "/healthz"},
		{"/resources/a/b/c", "unknown"},
		{"/favicon.ico", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, routeLabel(tc.path))
		})
	}
}
