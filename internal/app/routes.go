package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/middleware"
	"github.com/pagemill/core/internal/modules/content/landing"
	"github.com/pagemill/core/internal/modules/content/public"
	"github.com/pagemill/core/internal/modules/content/registry"
	"github.com/pagemill/core/internal/modules/content/slugs"
	"github.com/pagemill/core/internal/modules/stats/metrics"
	pkgredis "github.com/pagemill/core/internal/pkg/redis"
	"github.com/pagemill/core/internal/pkg/response"
	"github.com/pagemill/core/internal/pkg/revalidate"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(a.cfg.AdminToken)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Shared services
	reg := registry.New(false)
	resolver := slugs.NewResolver(db)
	pagesSvc := landing.NewService(db, reg, resolver)
	pagesSvc.SetRevalidator(revalidate.NewBroadcaster(rc, a.logger))
	metricsSvc := metrics.NewService(db)

	api := r.Group("/api/v1")
	api.Use(middleware.OptionalAuth(a.cfg.AdminToken))

	// Rate limiting and idempotence run on every API route (requires Redis).
	api.Use(middleware.RateLimit(rc.Raw()))
	api.Use(middleware.Idempotence(rc.Raw()))

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	// Public read path: cached per slug, invalidated on publish state changes.
	pub := api.Group("/pages")
	pub.Use(middleware.PageCache(rc.Raw(), middleware.PageCacheOptions{
		TTL: time.Duration(a.cfg.CacheTTLSec) * time.Second,
	}))
	public.NewHandler(pagesSvc, resolver, metricsSvc, a.logger).RegisterRoutes(pub)

	metricsHandler := metrics.NewHandler(metricsSvc, a.logger)
	metricsHandler.RegisterPublicRoutes(api)

	// Authoring surface
	admin := api.Group("/admin")
	landing.NewHandler(pagesSvc).RegisterRoutes(admin, authMW)
	metricsHandler.RegisterAdminRoutes(admin, authMW)
}
