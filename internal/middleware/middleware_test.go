package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/config"
	"github.com/iliyamo/smartpark/internal/utils"
)

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/v1/presence", okHandler, Protect("s3cret", utils.RoleGuard)...)

	guard, _ := utils.NewAccessToken("s3cret", "caseta-1", utils.RoleGuard, 5)
	sensor, _ := utils.NewAccessToken("s3cret", "cam-1", utils.RoleSensor, 5)

	cases := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"no token", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/v1/presence", nil) }, http.StatusUnauthorized},
		{"garbage", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
			r.Header.Set("Authorization", "Bearer nope")
			return r
		}, http.StatusUnauthorized},
		{"wrong role", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
			r.Header.Set("Authorization", "Bearer "+sensor.Token)
			return r
		}, http.StatusForbidden},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
			r.Header.Set("Authorization", "Bearer "+guard.Token)
			return r
		}, http.StatusOK},
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/v1/presence?token="+guard.Token, nil)
		}, http.StatusOK},
	}
	for _, tc := range cases {
		if got := serve(e, tc.req()).Code; got != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestProtectWithoutSecretIsOpen(t *testing.T) {
	e := echo.New()
	e.GET("/v1/presence", okHandler, Protect("", utils.RoleGuard)...)
	if got := serve(e, httptest.NewRequest(http.MethodGet, "/v1/presence", nil)).Code; got != http.StatusOK {
		t.Fatalf("status %d", got)
	}
}

func TestDisabledLimiterAndCachePassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/api/recibos", okHandler,
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/recibos", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/pagos", nil)
	req.Header.Set("X-Real-IP", "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/pagos")

	cfg := config.RateLimitConfig{Prefix: "smartpark:rl", KeyStrategy: "ip_route"}
	if got := rateKey(cfg, c); got != "smartpark:rl:ip:10.0.0.7:route:POST /api/pagos" {
		t.Fatalf("key = %s", got)
	}
	cfg.KeyStrategy = "user"
	c.Set("user_id", "caseta-1")
	if got := rateKey(cfg, c); got != "smartpark:rl:user:caseta-1" {
		t.Fatalf("key = %s", got)
	}
}

func TestCacheEntry(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`[]`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodeEntry(bs)
	if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != "[]" {
		t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodeEntry(bs[:10]); ok {
		t.Fatal("truncated entry accepted")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	for ms, want := range map[int64]int{-5: 0, 0: 0, 1: 1, 1000: 1, 1001: 2} {
		if got := retryAfterSeconds(ms); got != want {
			t.Errorf("retryAfterSeconds(%d) = %d", ms, got)
		}
	}
}
