// Package correlate resolves communication participants to known contacts
// and their project associations.
package correlate

import (
	"context"

	"sitewire_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Contact is a known person on record for a company.
type Contact struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	PhoneNumber string
	Email       string
	Role        string
}

// Repository provides contact and project-association lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new correlation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindContactsByPhone returns contacts whose stored number suffix-matches
// the given phone number (last 10 digits), scoped to a company.
func (r *Repository) FindContactsByPhone(ctx context.Context, companyID uuid.UUID, phoneNumber string) ([]Contact, error) {
	suffix := phone.Last10(phoneNumber)
	if suffix == "" {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, name, phone_number, email, role
		FROM contacts
		WHERE company_id = $1
		  AND right(regexp_replace(phone_number, '\D', '', 'g'), 10) = $2
	`, companyID, suffix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.PhoneNumber, &c.Email, &c.Role); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ProjectsForContacts returns the distinct project IDs associated with the
// given contacts.
func (r *Repository) ProjectsForContacts(ctx context.Context, contactIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT project_id
		FROM project_contacts
		WHERE contact_id = ANY($1)
	`, contactIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projectIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		projectIDs = append(projectIDs, id)
	}
	return projectIDs, rows.Err()
}

// ContactsForProject returns all contacts linked to a project.
func (r *Repository) ContactsForProject(ctx context.Context, projectID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.company_id, c.name, c.phone_number, c.email, c.role
		FROM contacts c
		JOIN project_contacts pc ON pc.contact_id = c.id
		WHERE pc.project_id = $1
		ORDER BY c.created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.PhoneNumber, &c.Email, &c.Role); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
