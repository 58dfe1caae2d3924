package action

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sitewire_backend/platform/httpkit"
)

const errInvalidActionID = "invalid action ID"

// Handler exposes the approval workflow over HTTP.
type Handler struct {
	repo *Repository
	exec *Executor
}

func NewHandler(repo *Repository, exec *Executor) *Handler {
	return &Handler{repo: repo, exec: exec}
}

// RecordResponse is the API shape of an action record.
type RecordResponse struct {
	ID               uuid.UUID        `json:"id"`
	ProjectID        uuid.UUID        `json:"projectId"`
	ActionType       Type             `json:"actionType"`
	ActionPayload    map[string]any   `json:"actionPayload,omitempty"`
	RequiresApproval bool             `json:"requiresApproval"`
	Status           Status           `json:"status"`
	ExecutionResult  *ExecutionResult `json:"executionResult,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	ExecutedAt       *time.Time       `json:"executedAt,omitempty"`
}

func toResponse(rec Record) RecordResponse {
	return RecordResponse{
		ID:               rec.ID,
		ProjectID:        rec.ProjectID,
		ActionType:       rec.ActionType,
		ActionPayload:    rec.ActionPayload,
		RequiresApproval: rec.RequiresApproval,
		Status:           rec.Status,
		ExecutionResult:  rec.ExecutionResult,
		CreatedAt:        rec.CreatedAt,
		ExecutedAt:       rec.ExecutedAt,
	}
}

// HandleListPending returns action records awaiting approval, or records in
// another status when ?status= is given.
// GET /api/v1/admin/actions
func (h *Handler) HandleListPending(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50)
	status := StatusPending
	if raw := c.Query("status"); raw != "" {
		status = Status(raw)
	}

	records, err := h.repo.ListByStatus(c.Request.Context(), status, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	httpkit.OK(c, gin.H{"actions": out})
}

// HandleListForProject returns the recent action history of one project.
// GET /api/v1/admin/projects/:projectId/actions
func (h *Handler) HandleListForProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid project ID", nil)
		return
	}
	limit := parseLimit(c.Query("limit"), 50)

	records, err := h.repo.ListByProject(c.Request.Context(), projectID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	httpkit.OK(c, gin.H{"actions": out})
}

// HandleApprove approves a pending record and executes it immediately.
// POST /api/v1/admin/actions/:actionId/approve
func (h *Handler) HandleApprove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("actionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidActionID, nil)
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.Transition(ctx, id, StatusPending, StatusApproved); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			httpkit.Error(c, http.StatusConflict, "action is not pending", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	rec, err := h.repo.GetByID(ctx, id)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.exec.Execute(ctx, rec)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"actionId": id, "result": result})
}

// HandleReject rejects a pending record.
// POST /api/v1/admin/actions/:actionId/reject
func (h *Handler) HandleReject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("actionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidActionID, nil)
		return
	}

	if err := h.repo.Transition(c.Request.Context(), id, StatusPending, StatusRejected); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			httpkit.Error(c, http.StatusConflict, "action is not pending", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"actionId": id, "status": StatusRejected})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 200 {
		return fallback
	}
	return n
}
