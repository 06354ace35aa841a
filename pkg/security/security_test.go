package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"teachtrack_backend/internal/config"

	"github.com/gin-gonic/gin"
)

func corsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSAllowedOrigin(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	corsRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Allow-Credentials missing for a whitelisted origin")
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	corsRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset for an unknown origin", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	corsRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Max-Age") != "43200" {
		t.Errorf("Max-Age = %q", w.Header().Get("Access-Control-Max-Age"))
	}
}

func TestSecureHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Secure())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set on plain HTTP")
	}
}

func TestRateLimiterGenerateBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(config.RateLimitConfig{
		MaxRequests:         100,
		WindowMinutes:       1,
		GenerateMaxRequests: 2,
	}))
	r.POST("/api/generate/lesson", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/modules", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	if do("POST", "/api/generate/lesson") != http.StatusOK {
		t.Fatal("first generation request must pass")
	}
	if do("POST", "/api/generate/lesson") != http.StatusOK {
		t.Fatal("second generation request must pass")
	}
	if do("POST", "/api/generate/lesson") != http.StatusTooManyRequests {
		t.Error("third generation request must hit the generation budget")
	}

	// 普通接口走大预算，不受生成预算影响
	if do("GET", "/api/modules") != http.StatusOK {
		t.Error("CRUD requests must not be throttled by the generation budget")
	}
}
