package security

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"teachtrack_backend/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var allowedHeaders = strings.Join([]string{
	"Content-Type",
	"Content-Length",
	"Accept-Encoding",
	"Authorization",
	"Accept",
	"Origin",
	"Cache-Control",
	"X-Requested-With",
}, ", ")

// CORS 中间件 仅允许白名单中的Origin，支持Credentials。
// 前端是单页应用，预检结果缓存12小时减少OPTIONS往返。
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && originSet[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Max-Age", "43200")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 中间件 基础安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止MIME嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		// API不应被嵌入iframe
		c.Header("X-Frame-Options", "DENY")
		// 资源URL可能含课程标识，不向外站泄露Referrer
		c.Header("Referrer-Policy", "no-referrer")
		// HSTS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		c.Next()
	}
}

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu     sync.Mutex
	store  map[string]*visitor
	rate   rate.Limit
	burst  int
	window time.Duration
}

func newLimiterPool(maxRequests int, window time.Duration) *limiterPool {
	return &limiterPool{
		store:  make(map[string]*visitor),
		rate:   rate.Every(window / time.Duration(maxRequests)),
		burst:  maxRequests,
		window: window,
	}
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	v, exists := p.store[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.store[key] = v
	}
	v.lastSeen = time.Now()
	limiter := v.limiter
	p.mu.Unlock()

	return limiter.Allow()
}

func (p *limiterPool) sweep() {
	expiry := p.window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for ip, v := range p.store {
			if time.Since(v.lastSeen) > expiry {
				delete(p.store, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimiter 按IP限流，自动清理过期条目。
// /api/generate 路径走单独的更小预算：每次生成都是一次上游模型调用，
// 成本远高于普通CRUD请求。
func RateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	generateMax := cfg.GenerateMaxRequests
	if generateMax <= 0 {
		generateMax = 30
	}

	general := newLimiterPool(maxRequests, window)
	generation := newLimiterPool(generateMax, window)
	go general.sweep()
	go generation.sweep()

	return func(c *gin.Context) {
		pool := general
		if strings.HasPrefix(c.Request.URL.Path, "/api/generate") {
			pool = generation
		}

		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
