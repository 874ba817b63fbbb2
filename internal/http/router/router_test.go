package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadbot_backend/internal/http"
	"leadbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testRouterConfig struct {
	allowAll bool
	origins  []string
}

func (c testRouterConfig) GetHTTPAddr() string        { return ":0" }
func (c testRouterConfig) GetCORSAllowAll() bool      { return c.allowAll }
func (c testRouterConfig) GetCORSOrigins() []string   { return c.origins }
func (c testRouterConfig) GetCORSAllowCreds() bool    { return !c.allowAll }
func (c testRouterConfig) GetJWTAccessSecret() string { return "s3cret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{ registered bool }

func (m *echoModule) Name() string { return "echo" }

func (m *echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.registered = true
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "open") })
	ctx.Protected.GET("/echo/private", func(c *gin.Context) { c.String(http.StatusOK, "private") })
}

func newTestApp(health apphttp.HealthChecker, modules ...apphttp.Module) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config:  testRouterConfig{origins: []string{"http://localhost:4200"}},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: modules,
	}
}

func serve(engine *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	engine := New(newTestApp(pinger{}))

	if rec := serve(engine, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
}

func TestReadinessFailsWhenDatabaseIsDown(t *testing.T) {
	engine := New(newTestApp(pinger{err: errors.New("connection refused")}))

	rec := serve(engine, http.MethodGet, "/api/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestModulesMountUnderV1AndProtectedRoutesNeedAuth(t *testing.T) {
	module := &echoModule{}
	engine := New(newTestApp(pinger{}, module))

	if !module.registered {
		t.Fatal("expected module routes to be registered")
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/echo", nil); rec.Code != http.StatusOK {
		t.Fatalf("open route: expected 200, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/echo/private", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route: expected 401, got %d", rec.Code)
	}
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	engine := New(newTestApp(pinger{}))

	rec := serve(engine, http.MethodGet, "/api/health", map[string]string{"Origin": "http://localhost:4200"})
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	rec = serve(engine, http.MethodGet, "/api/health", map[string]string{"Origin": "http://evil.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected foreign origin rejected, got %q", got)
	}
}

func TestCORSConfigWithoutOriginsStillBuilds(t *testing.T) {
	conf := corsConfig(testRouterConfig{})
	if conf.AllowOriginFunc == nil || conf.AllowOriginFunc("http://localhost:4200") {
		t.Fatal("expected every cross origin to be refused")
	}
	if err := conf.Validate(); err != nil {
		t.Fatalf("expected valid cors config, got %v", err)
	}
}
