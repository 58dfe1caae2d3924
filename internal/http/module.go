// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"github.com/gin-gonic/gin"

	"sitewire_backend/platform/httpkit"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	// The RouterContext provides access to shared middleware and configuration.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
// This avoids passing many parameters to each module's RegisterRoutes method.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Webhooks is the /webhook group: API-key authenticated, rate limited,
	// and exempt from CORS restrictions since providers post server-to-server.
	Webhooks *gin.RouterGroup
	// Admin is the operator route group under /api/v1/admin.
	Admin *gin.RouterGroup
	// APIKeyAuth authenticates requests with a provisioned webhook API key.
	APIKeyAuth gin.HandlerFunc
	// WebhookRateLimiter throttles webhook intake per client IP.
	WebhookRateLimiter *httpkit.IPRateLimiter
}
