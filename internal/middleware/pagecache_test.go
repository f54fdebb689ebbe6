package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// unreachableRedis forces every cache lookup to miss and every store to fail
// silently, which exercises the fill path without a running server.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func setupPageCacheRouter(t *testing.T, authenticated bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	group := router.Group("/pages")
	if authenticated {
		group.Use(func(c *gin.Context) { c.Set(ContextKeyAuthenticated, true) })
	}
	group.Use(PageCache(unreachableRedis(), PageCacheOptions{TTL: 30 * time.Second}))
	group.GET("/:slug", func(c *gin.Context) {
		if c.Param("slug") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug")})
	})

	return router
}

func getPage(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPageCacheMissCarriesCacheControl(t *testing.T) {
	router := setupPageCacheRouter(t, false)

	w := getPage(router, "/pages/promo")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	cc := w.Header().Get("Cache-Control")
	if !strings.Contains(cc, "public") || !strings.Contains(cc, "max-age=30") {
		t.Fatalf("fill-path response must carry public cache directives, got %q", cc)
	}
	if !strings.Contains(cc, "stale-while-revalidate") {
		t.Fatalf("fill-path response must allow stale serves during refresh, got %q", cc)
	}
	if w.Header().Get("x-pm-cache") == "hit" {
		t.Fatal("a filled response must not be labeled as a cache hit")
	}
}

func TestPageCacheErrorResponsesNotDecorated(t *testing.T) {
	router := setupPageCacheRouter(t, false)

	w := getPage(router, "/pages/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Fatalf("error responses must not carry public cache directives, got %q", cc)
	}
}

func TestPageCacheAuthenticatedBypass(t *testing.T) {
	router := setupPageCacheRouter(t, true)

	w := getPage(router, "/pages/promo")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("authenticated responses must be uncacheable, got %q", cc)
	}
}

func TestPageCachePreviewBypass(t *testing.T) {
	router := setupPageCacheRouter(t, false)

	w := getPage(router, "/pages/promo?preview=1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("preview responses must be uncacheable, got %q", cc)
	}
}
