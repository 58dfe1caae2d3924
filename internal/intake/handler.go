package intake

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sitewire_backend/platform/httpkit"
	"sitewire_backend/platform/validator"
)

// maxWebhookBody caps how much of a webhook payload is read and stored.
const maxWebhookBody = 1 << 20

// Handler handles webhook intake HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	val     *validator.Validator
}

func NewHandler(service *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, val: val}
}

// HandleWebhook ingests one provider webhook.
// POST /webhook/:provider
//
// Always acknowledges with 200 once the request is authenticated: providers
// retry non-2xx responses and a processing bug must not cause a redelivery
// storm. The success flag tells the provider dashboard what happened.
func (h *Handler) HandleWebhook(c *gin.Context) {
	companyID, ok := companyFromContext(c)
	if !ok {
		return
	}
	provider := c.Param("provider")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		payload = nil
	}

	webhookID, err := h.service.Ingest(c.Request.Context(), companyID, provider, c.ContentType(), payload)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "webhook_id": webhookID})
}

// HandleGetRawWebhook returns a stored raw payload.
// GET /api/v1/admin/webhooks/:webhookId
func (h *Handler) HandleGetRawWebhook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook ID", nil)
		return
	}

	raw, err := h.service.GetRaw(c.Request.Context(), id)
	if err != nil {
		httpkit.Error(c, http.StatusNotFound, "webhook not found", nil)
		return
	}

	httpkit.OK(c, gin.H{
		"id":          raw.ID,
		"provider":    raw.Provider,
		"contentType": raw.ContentType,
		"payload":     string(raw.Payload),
		"receivedAt":  raw.ReceivedAt,
	})
}

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// HandleCreateAPIKey provisions a new webhook API key. The plaintext key is
// returned only in this response.
// POST /api/v1/admin/webhooks/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	companyID, ok := companyFromContext(c)
	if !ok {
		return
	}

	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate key", nil)
		return
	}

	key, err := h.repo.CreateAPIKey(c.Request.Context(), companyID, req.Name, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        key.ID,
		"name":      key.Name,
		"key":       plaintext,
		"keyPrefix": key.KeyPrefix,
		"createdAt": key.CreatedAt,
	})
}

// HandleListAPIKeys lists the company's keys (prefixes only, never hashes).
// GET /api/v1/admin/webhooks/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	companyID, ok := companyFromContext(c)
	if !ok {
		return
	}

	keys, err := h.repo.ListAPIKeys(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		out = append(out, gin.H{
			"id":        key.ID,
			"name":      key.Name,
			"keyPrefix": key.KeyPrefix,
			"isActive":  key.IsActive,
			"createdAt": key.CreatedAt,
		})
	}
	httpkit.OK(c, gin.H{"keys": out})
}

// HandleRevokeAPIKey deactivates a key.
// DELETE /api/v1/admin/webhooks/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	companyID, ok := companyFromContext(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.RevokeAPIKey(c.Request.Context(), keyID, companyID); err != nil {
		httpkit.Error(c, http.StatusNotFound, "key not found", nil)
		return
	}
	httpkit.OK(c, gin.H{"revoked": keyID})
}

func companyFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextCompanyID)
	if !exists {
		httpkit.Error(c, http.StatusUnauthorized, "no company context", nil)
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no company context", nil)
		return uuid.Nil, false
	}
	return id, true
}
