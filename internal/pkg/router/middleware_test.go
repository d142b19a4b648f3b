package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/authgate/internal/pkg/config"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestMiddlewareIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " ", "192.0.2.100"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "TrueClientIPFirst", headers: map[string]string{"True-Client-IP": "203.0.113.7", "X-Real-IP": "198.51.100.1"}, remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "ForwardedForSkipsTrustedHops", headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 198.51.100.9, 10.0.0.2"}, remote: "10.0.0.1:5000", want: "198.51.100.9"},
		{name: "ForwardedForAllTrusted", headers: map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.2"}, remote: "10.0.0.1:5000", want: "10.1.1.1"},
		{name: "SingleTrustedAddress", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, remote: "192.0.2.100:443", want: "198.51.100.3"},
		{name: "InvalidHeaderFallsBackToRemote", headers: map[string]string{"X-Real-IP": "not-an-ip"}, remote: "10.0.0.4:80", want: "10.0.0.4"},
		{name: "UntrustedPeerHeadersIgnored", headers: map[string]string{"True-Client-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.9"}, remote: "192.0.2.4:80", want: "192.0.2.4"},
		{name: "MappedIPv4IsUnmapped", remote: "[::ffff:192.0.2.5]:80", want: "192.0.2.5"},
		{name: "UnparsableRemoteUntouched", remote: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			var got string
			h := middlewareIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = r.RemoteAddr }))

			// Act
			h.ServeHTTP(httptest.NewRecorder(), req)

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddlewareIP_NoTrustedProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	var got string
	middlewareIP(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = r.RemoteAddr })).
		ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.1", got)
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/40"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestMiddlewareCorrelationID(t *testing.T) {
	run := func(headers map[string]string) (string, string) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()

		var inCtx string
		middlewareCorrelationID(fixedID("generated"))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			inCtx = instrument.GetCorrelationID(r.Context())
		})).ServeHTTP(rec, req)

		return inCtx, rec.Header().Get(HeaderCorrelationID)
	}

	t.Run("KeepsIncoming", func(t *testing.T) {
		ctxID, header := run(map[string]string{HeaderCorrelationID: "abc-123"})
		assert.Equal(t, "abc-123", ctxID)
		assert.Equal(t, "abc-123", header)
	})

	t.Run("FallsBackToRequestID", func(t *testing.T) {
		ctxID, _ := run(map[string]string{HeaderRequestID: "req-9"})
		assert.Equal(t, "req-9", ctxID)
	})

	t.Run("RejectsUnprintable", func(t *testing.T) {
		ctxID, header := run(map[string]string{HeaderCorrelationID: "bad id"})
		assert.Equal(t, "generated", ctxID)
		assert.Equal(t, "generated", header)
	})

	t.Run("Truncates", func(t *testing.T) {
		ctxID, _ := run(map[string]string{HeaderCorrelationID: strings.Repeat("a", 200)})
		assert.Len(t, ctxID, maxCorrelationIDLen)
	})
}

func TestMiddlewareRecoverer(t *testing.T) {
	t.Run("PanicBecomes500", func(t *testing.T) {
		rec := httptest.NewRecorder()

		middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify-otp", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
	})

	t.Run("AbortHandlerIsReraised", func(t *testing.T) {
		h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestMiddlewareMaintenance(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	newCfg := func(t *testing.T, yaml string) config.Config {
		t.Helper()
		cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
		require.NoError(t, err)
		return cfg
	}

	t.Run("ListedRouteBlocked", func(t *testing.T) {
		cfg := newCfg(t, "app:\n  maintenance:\n    endpoints: [/send-otp]\n    retry_after_seconds: 30\n")
		rec := httptest.NewRecorder()

		middlewareMaintenance(cfg)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send-otp", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})

	t.Run("OtherRoutePasses", func(t *testing.T) {
		cfg := newCfg(t, "app:\n  maintenance:\n    endpoints: [/send-otp]\n")
		rec := httptest.NewRecorder()

		middlewareMaintenance(cfg)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify-otp", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("WildcardBlocksAll", func(t *testing.T) {
		cfg := newCfg(t, "app:\n  maintenance:\n    endpoints: \"*\"\n")
		rec := httptest.NewRecorder()

		middlewareMaintenance(cfg)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("NilConfigPasses", func(t *testing.T) {
		rec := httptest.NewRecorder()

		middlewareMaintenance(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGateOutcome(t *testing.T) {
	assert.Equal(t, "expired_credential", gateOutcome(jwt.ErrExpiredCredential))
	assert.Empty(t, gateOutcome(assert.AnError))
	assert.Empty(t, gateOutcome(nil))
}

func TestLoggableBody_MasksSecrets(t *testing.T) {
	keys := instrument.MaskKeys([]string{"password", "otp"})

	t.Run("JSON", func(t *testing.T) {
		got := loggableBody("application/json", []byte(`{"email":"a@x.com","otp":"123456"}`), keys)

		assert.Equal(t, map[string]any{"email": "a@x.com", "otp": maskedValue}, got)
	})

	t.Run("Form", func(t *testing.T) {
		got := loggableBody("application/x-www-form-urlencoded", []byte("username=alice&password=hunter22"), keys)

		assert.Equal(t, map[string]any{"username": "alice", "password": maskedValue}, got)
	})

	t.Run("Binary", func(t *testing.T) {
		assert.Equal(t, binaryBodyOmitted, loggableBody("", []byte{0xff, 0xfe}, keys))
	})

	t.Run("DefaultsWithoutConfig", func(t *testing.T) {
		defaults := instrument.MaskKeys(nil)
		req := http.Header{"Authorization": []string{"Bearer abc"}, "Accept": []string{"*/*"}}

		body := loggableBody("application/json", []byte(`{"email":"a@x.com","otp":"123456"}`), defaults)
		headers := maskHeaders(req, defaults)

		assert.Equal(t, map[string]any{"email": "a@x.com", "otp": maskedValue}, body)
		assert.Equal(t, []string{maskedValue}, headers["Authorization"])
		assert.Equal(t, []string{"*/*"}, headers["Accept"])
	})
}

func TestResponseRecorder_CapturesUpToLimit(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder()}

	_, err := rec.Write(bytes.Repeat([]byte("a"), maxLoggedBodyBytes+10))

	require.NoError(t, err)
	assert.True(t, rec.capped)
	assert.Equal(t, maxLoggedBodyBytes, rec.body.Len())
	assert.Equal(t, maxLoggedBodyBytes+10, rec.bytes)
	assert.Equal(t, http.StatusOK, rec.statusCode())
}
