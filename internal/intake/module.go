package intake

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitewire_backend/internal/events"
	apphttp "sitewire_backend/internal/http"
	"sitewire_backend/platform/logger"
	"sitewire_backend/platform/validator"
)

// Module is the intake bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	service *Service
}

// NewModule creates and initializes the intake module with all its dependencies.
func NewModule(pool *pgxpool.Pool, commStore CommStore, pipeline Pipeline, deferrer Deferrer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, commStore, pipeline, deferrer, bus, log)
	handler := NewHandler(service, repo, val)

	return &Module{
		handler: handler,
		repo:    repo,
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "intake"
}

// AuthMiddleware returns the API key middleware backed by this module's keys.
func (m *Module) AuthMiddleware() gin.HandlerFunc {
	return APIKeyAuthMiddleware(m.repo)
}

// Service exposes the intake service for composition-root wiring.
func (m *Module) Service() *Service { return m.service }

// RegisterRoutes mounts webhook intake and key management routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/:provider", m.handler.HandleWebhook)

	keys := ctx.Admin.Group("/webhook-keys")
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)

	ctx.Admin.GET("/webhooks/:webhookId", m.handler.HandleGetRawWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
