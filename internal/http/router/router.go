// Package router assembles the Gin engine from registered modules.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apphttp "sitewire_backend/internal/http"
	"sitewire_backend/platform/httpkit"
)

// New builds the HTTP engine: global middleware, health endpoint, and every
// module's routes mounted through the shared RouterContext.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(corsMiddleware(app))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook intake gets its own limiter: providers retry aggressively, so
	// the burst is generous relative to the sustained rate.
	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(10), 30, app.Logger)

	v1 := engine.Group("/api/v1")

	webhooks := engine.Group("/webhook")
	webhooks.Use(webhookLimiter.Middleware())
	if app.APIKeyAuth != nil {
		webhooks.Use(app.APIKeyAuth)
	}

	admin := v1.Group("/admin")
	if app.APIKeyAuth != nil {
		admin.Use(app.APIKeyAuth)
	}

	ctx := &apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Webhooks:           webhooks,
		Admin:              admin,
		APIKeyAuth:         app.APIKeyAuth,
		WebhookRateLimiter: webhookLimiter,
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Info("module routes registered", "module", m.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: app.Config.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = app.Config.GetCORSOrigins()
	}
	return cors.New(cfg)
}
