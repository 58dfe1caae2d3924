// Package notify surfaces operational events to operators: actions waiting
// for approval, exhausted integration jobs, and communications nobody could
// route. Everything is logged; email goes out when an operator address is
// configured.
package notify

import (
	"context"
	"fmt"

	"sitewire_backend/internal/events"
	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"
)

// EmailSender delivers operator notifications.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Notifier struct {
	email    EmailSender
	operator string
	log      *logger.Logger
}

func New(email EmailSender, cfg config.NotifyConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		email:    email,
		operator: cfg.GetOperatorEmail(),
		log:      log,
	}
}

// RegisterHandlers subscribes to the operational domain events.
func (n *Notifier) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ActionPendingApproval{}.EventName(), n)
	bus.Subscribe(events.IntegrationJobFailed{}.EventName(), n)
	bus.Subscribe(events.CommunicationUnrouted{}.EventName(), n)
}

func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ActionPendingApproval:
		n.log.Info("action pending approval",
			"action_id", e.ActionID,
			"project_id", e.ProjectID,
			"action_type", e.ActionType)
		return n.notify(ctx,
			"Action awaiting approval",
			fmt.Sprintf("Action %s (%s) on project %s is waiting for approval.\n\nReason: %s",
				e.ActionID, e.ActionType, e.ProjectID, e.Reason))
	case events.IntegrationJobFailed:
		n.log.Error("integration job exhausted retries",
			"job_id", e.JobID,
			"resource_type", e.ResourceType,
			"error", e.ErrorMessage)
		return n.notify(ctx,
			"Integration job failed permanently",
			fmt.Sprintf("Job %s (%s) for company %s failed permanently.\n\nLast error: %s",
				e.JobID, e.ResourceType, e.CompanyID, e.ErrorMessage))
	case events.CommunicationUnrouted:
		n.log.Warn("communication needs manual routing",
			"communication_id", e.CommunicationID,
			"reason", e.Reason)
		return nil
	default:
		return nil
	}
}

func (n *Notifier) notify(ctx context.Context, subject, body string) error {
	if n.email == nil || n.operator == "" {
		return nil
	}
	if err := n.email.Send(ctx, n.operator, subject, body); err != nil {
		n.log.Warn("operator notification failed", "subject", subject, "error", err)
	}
	return nil
}
