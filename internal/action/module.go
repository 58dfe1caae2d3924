// Package action module wiring and route registration.
package action

import (
	apphttp "sitewire_backend/internal/http"
)

// Module is the action bounded context module implementing http.Module.
type Module struct {
	handler  *Handler
	repo     *Repository
	manager  *Manager
	executor *Executor
}

// NewModule wires the action record repository, manager, and executor.
func NewModule(repo *Repository, manager *Manager, executor *Executor) *Module {
	return &Module{
		handler:  NewHandler(repo, executor),
		repo:     repo,
		manager:  manager,
		executor: executor,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "action"
}

// Manager exposes the decision-to-record manager for the pipeline.
func (m *Module) Manager() *Manager { return m.manager }

// Executor exposes the executor for the pipeline and approval flow.
func (m *Module) Executor() *Executor { return m.executor }

// RegisterRoutes mounts the approval workflow on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	actions := ctx.Admin.Group("/actions")
	actions.GET("", m.handler.HandleListPending)
	actions.POST("/:actionId/approve", m.handler.HandleApprove)
	actions.POST("/:actionId/reject", m.handler.HandleReject)

	ctx.Admin.GET("/projects/:projectId/actions", m.handler.HandleListForProject)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
