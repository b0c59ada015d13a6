package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type verifyBody struct {
	Code string `json:"code"`
}

type verifyResult struct {
	Valid bool `json:"valid"`
}

func newTestRouter() *Router {
	r := NewRouter(Config{UUID: fixedID("cid-generated")})

	r.POST("/echo", func(req *Request) (any, error) {
		var body verifyBody
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		return verifyResult{Valid: body.Code == "123456"}, nil
	})
	r.GET("/empty", func(*Request) (any, error) { return nil, nil })
	r.GET("/validation", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(validator.V10ValidationError{"code": "code is required"})
	})
	r.GET("/fields", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "secret", "bad")
	})
	r.GET("/plain", func(*Request) (any, error) { return nil, errors.New("raw") })
	r.GET("/panic", func(*Request) (any, error) { panic("boom") })

	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRouter_Endpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		check      func(t *testing.T, got map[string]any)
	}{
		{
			name: "success", method: http.MethodPost, path: "/echo", body: `{"code":"123456"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, map[string]any{"valid": true}, got["data"])
			},
		},
		{name: "unknown field", method: http.MethodPost, path: "/echo", body: `{"code":"1","x":1}`, wantStatus: http.StatusBadRequest},
		{name: "trailing data", method: http.MethodPost, path: "/echo", body: `{"code":"1"}{}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", method: http.MethodPost, path: "/echo", body: ``, wantStatus: http.StatusBadRequest},
		{name: "no content", method: http.MethodGet, path: "/empty", wantStatus: http.StatusNoContent},
		{
			name: "validation", method: http.MethodGet, path: "/validation",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, map[string]any{"code": "code is required"}, got["error"])
			},
		},
		{
			name: "fields", method: http.MethodGet, path: "/fields",
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, map[string]any{"secret": "bad"}, got["error"])
			},
		},
		{name: "plain error", method: http.MethodGet, path: "/plain", wantStatus: http.StatusInternalServerError},
		{name: "panic", method: http.MethodGet, path: "/panic", wantStatus: http.StatusInternalServerError},
		{name: "not found", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "method not allowed", method: http.MethodDelete, path: "/echo", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, got := do(t, r, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestRouter_CorrelationID(t *testing.T) {
	t.Parallel()

	r := newTestRouter()

	rec, _ := do(t, r, http.MethodGet, "/empty", "", nil)
	assert.Equal(t, "cid-generated", rec.Header().Get(HeaderCorrelationID))

	rec, _ = do(t, r, http.MethodGet, "/empty", "", map[string]string{HeaderCorrelationID: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(HeaderCorrelationID))

	rec, _ = do(t, r, http.MethodGet, "/empty", "", map[string]string{HeaderRequestID: "from-proxy"})
	assert.Equal(t, "from-proxy", rec.Header().Get(HeaderCorrelationID))
}

func TestNormalizeCID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, normalizeCID("a\r\nb"))
	assert.Equal(t, "x", normalizeCID("  x "))
	assert.Len(t, normalizeCID(strings.Repeat("a", 300)), maxCorrelationIDLen)
}

type arrayConfig struct {
	config.Config
	arrays map[string][]string
}

func (c arrayConfig) GetArray(key string) []string { return c.arrays[key] }

func TestTrustedProxies(t *testing.T) {
	t.Parallel()

	assert.Nil(t, trustedProxies(nil))

	got := trustedProxies(arrayConfig{arrays: map[string][]string{
		"app.server.http.trusted_proxies": {"10.0.0.0/8", "192.0.2.1", "not-an-ip", " "},
	}})
	require.Len(t, got, 2)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), got[0])
	assert.Equal(t, netip.MustParsePrefix("192.0.2.1/32"), got[1])
}

func TestRealIP(t *testing.T) {
	t.Parallel()

	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		trusted []netip.Prefix
		want    string
	}{
		{name: "peer only", remote: "203.0.113.5:1234", want: "203.0.113.5"},
		{
			name:    "untrusted peer cannot spoof",
			remote:  "203.0.113.5:1234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7", "X-Real-IP": "198.51.100.8", "True-Client-IP": "198.51.100.9"},
			trusted: trusted,
			want:    "203.0.113.5",
		},
		{
			name:    "no trusted proxies configured",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:    "10.0.0.1",
		},
		{
			name:    "trusted peer forwards first untrusted hop from the right",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.66, 203.0.113.9, 10.0.0.2"},
			trusted: trusted,
			want:    "203.0.113.9",
		},
		{
			name:    "trusted peer with real ip header",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			trusted: trusted,
			want:    "198.51.100.7",
		},
		{
			name:    "true client ip is ignored",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"True-Client-IP": "198.51.100.9"},
			trusted: trusted,
			want:    "10.0.0.1",
		},
		{name: "unparsable peer", remote: "pipe", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, realIP(req, tt.trusted))
		})
	}
}

func TestMiddlewareIP_KeepsRemoteAddr(t *testing.T) {
	t.Parallel()

	var gotIP, gotRemote string
	h := middlewareIP([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = ClientIP(r.Context())
		gotRemote = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, "10.0.0.1:1234", gotRemote)
}

func TestMaskHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Authorization", "Bearer x")
	h.Set("Accept", "application/json")

	got := maskHeaders(h, headerMaskKeys(nil))
	assert.Equal(t, "***", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "Bearer x", h.Get("Authorization"), "original headers are untouched")
}
