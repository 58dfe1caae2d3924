package integration

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apphttp "sitewire_backend/internal/http"
	"sitewire_backend/platform/httpkit"
)

// Module is the integration bounded context module implementing http.Module.
type Module struct {
	repo      *Repository
	processor *Processor
}

func NewModule(repo *Repository, processor *Processor) *Module {
	return &Module{repo: repo, processor: processor}
}

func (m *Module) Name() string {
	return "integration"
}

// Repository exposes the queue for the executor's enqueue path.
func (m *Module) Repository() *Repository { return m.repo }

// Processor exposes the batch processor for the scheduler worker.
func (m *Module) Processor() *Processor { return m.processor }

// RegisterRoutes mounts job inspection endpoints on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Admin.Group("/integration/jobs")
	jobs.GET("", m.handleListJobs)
	jobs.GET("/:jobId", m.handleGetJob)
}

func (m *Module) handleListJobs(c *gin.Context) {
	status := JobStatus(c.Query("status"))
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	jobs, err := m.repo.ListRecent(c.Request.Context(), status, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"jobs": jobs})
}

func (m *Module) handleGetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid job ID", nil)
		return
	}

	job, err := m.repo.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

var _ apphttp.Module = (*Module)(nil)
