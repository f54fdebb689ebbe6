package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/pkg/revalidate"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPageCacheTTL       = 15 * time.Second
	defaultPageCacheMaxBody   = 1 << 20 // 1 MiB
	staleWhileRevalidateValue = 60
)

// PageCacheOptions configures the public page response cache.
type PageCacheOptions struct {
	TTL          time.Duration
	Disable      bool
	MaxBodyBytes int
	// SlugParam is the route parameter carrying the page slug. Cache entries
	// are keyed by slug so revalidation can purge exactly one page.
	SlugParam string
}

type cachedPageResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
	Body        []byte `json:"-"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
	ttlSeconds   int
	decorated    bool
}

// WriteHeader decorates the response before gin commits headers. Anything set
// after the handler writes its body never reaches the client.
func (w *cacheBodyWriter) WriteHeader(status int) {
	w.decorate(status)
	w.ResponseWriter.WriteHeader(status)
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.decorate(w.Status())
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.decorate(w.Status())
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) decorate(status int) {
	if w.decorated {
		return
	}
	w.decorated = true
	setCacheControlHeader(w.ResponseWriter, status, w.ttlSeconds)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.maxBodyBytes <= 0 || w.overflow || len(data) == 0 {
		return
	}
	remaining := w.maxBodyBytes - len(w.body)
	if remaining <= 0 {
		w.overflow = true
		return
	}
	if len(data) > remaining {
		w.body = append(w.body, data[:remaining]...)
		w.overflow = true
		return
	}
	w.body = append(w.body, data...)
}

func normalizePageCacheOptions(opts PageCacheOptions) PageCacheOptions {
	if opts.TTL <= 0 {
		opts.TTL = defaultPageCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultPageCacheMaxBody
	}
	if opts.SlugParam == "" {
		opts.SlugParam = "slug"
	}
	return opts
}

// PageCache caches public page responses in Redis for a bounded interval,
// keyed by slug. Authenticated and preview requests bypass the cache and get
// explicit no-store headers so editors always see fresh content.
func PageCache(rdb *redis.Client, opts PageCacheOptions) gin.HandlerFunc {
	options := normalizePageCacheOptions(opts)
	return func(c *gin.Context) {
		if options.Disable || rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		slug := c.Param(options.SlugParam)
		if slug == "" {
			c.Next()
			return
		}

		if IsAuthenticated(c) || hasPreviewFlag(c) {
			setPrivateCacheHeader(c.Writer)
			c.Next()
			return
		}

		cacheKey := revalidate.PageCacheKeyPrefix + slug
		if payload, ok := readCachedResponse(c.Request.Context(), rdb, cacheKey); ok {
			setCacheControlHeader(c.Writer, payload.Status, int(options.TTL/time.Second))
			c.Writer.Header().Set("x-pm-cache", "hit")
			c.Data(payload.Status, payload.ContentType, payload.Body)
			c.Abort()
			return
		}

		buffer := &cacheBodyWriter{
			ResponseWriter: c.Writer,
			maxBodyBytes:   options.MaxBodyBytes,
			ttlSeconds:     int(options.TTL / time.Second),
		}
		c.Writer = buffer
		c.Next()

		status := c.Writer.Status()
		if status <= 0 {
			status = http.StatusOK
		}

		if !isCacheableResponse(status, c.Writer.Header()) {
			return
		}
		if buffer.overflow || len(buffer.body) == 0 {
			return
		}

		payload := cachedPageResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = rdb.Set(c.Request.Context(), cacheKey, raw, options.TTL).Err()
	}
}

// PurgePageCache drops every cached page payload. Used by operational tooling
// after bulk imports; single-page purges go through the revalidate package.
func PurgePageCache(ctx context.Context, rdb *redis.Client) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, revalidate.PageCacheKeyPrefix+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func readCachedResponse(ctx context.Context, rdb *redis.Client, cacheKey string) (cachedPageResponse, bool) {
	raw, err := rdb.Get(ctx, cacheKey).Bytes()
	if err != nil || len(raw) == 0 {
		return cachedPageResponse{}, false
	}
	var payload cachedPageResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return cachedPageResponse{}, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil {
		return cachedPageResponse{}, false
	}
	payload.Body = body
	return payload, true
}

func hasPreviewFlag(c *gin.Context) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query("preview"))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func isCacheableResponse(status int, headers http.Header) bool {
	if status != http.StatusOK {
		return false
	}
	cacheControl := strings.ToLower(headers.Get("Cache-Control"))
	return !strings.Contains(cacheControl, "no-cache") &&
		!strings.Contains(cacheControl, "no-store") &&
		!strings.Contains(cacheControl, "private")
}

func setPrivateCacheHeader(w gin.ResponseWriter) {
	cacheValue := "private, max-age=0, no-cache, no-store, must-revalidate"
	w.Header().Set("Cache-Control", cacheValue)
	w.Header().Set("CDN-Cache-Control", cacheValue)
}

func setCacheControlHeader(w gin.ResponseWriter, status, ttlSeconds int) {
	if status != http.StatusOK {
		return
	}
	if w.Header().Get("Cache-Control") != "" {
		return
	}
	if ttlSeconds <= 0 {
		ttlSeconds = int(defaultPageCacheTTL / time.Second)
	}
	w.Header().Set("Cache-Control",
		"public, max-age="+strconv.Itoa(ttlSeconds)+
			", stale-while-revalidate="+strconv.Itoa(staleWhileRevalidateValue))
}
