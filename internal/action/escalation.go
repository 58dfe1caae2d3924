package action

import (
	"context"

	"github.com/google/uuid"

	"sitewire_backend/platform/apperr"
)

// EscalationRecipient is a configured destination for escalation notices.
type EscalationRecipient struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	PhoneNumber string
	Active      bool
}

// ActiveEscalationRecipients returns the recipients escalation notices go to
// for a company, oldest configuration first.
func (r *Repository) ActiveEscalationRecipients(ctx context.Context, companyID uuid.UUID) ([]EscalationRecipient, error) {
	query := `
		SELECT id, company_id, recipient_name, phone_number, is_active
		FROM escalation_configs
		WHERE company_id = $1 AND is_active
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list escalation recipients", err)
	}
	defer rows.Close()

	var out []EscalationRecipient
	for rows.Next() {
		var rec EscalationRecipient
		if err := rows.Scan(&rec.ID, &rec.CompanyID, &rec.Name, &rec.PhoneNumber, &rec.Active); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan escalation recipient", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
