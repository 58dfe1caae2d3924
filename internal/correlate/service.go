package correlate

import (
	"context"
	"strings"

	"sitewire_backend/internal/comms"
	"sitewire_backend/platform/logger"

	"github.com/google/uuid"
)

// ContactFinder is the subset of the repository the correlator needs.
type ContactFinder interface {
	FindContactsByPhone(ctx context.Context, companyID uuid.UUID, phoneNumber string) ([]Contact, error)
	ProjectsForContacts(ctx context.Context, contactIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Result is the outcome of correlating one communication.
type Result struct {
	ProjectID      *uuid.UUID
	IsMultiProject bool
	Contacts       []Contact
}

// Routed reports whether the communication matched at least one project.
func (r Result) Routed() bool {
	return r.ProjectID != nil || r.IsMultiProject
}

// Service classifies communications as single-project, multi-project, or
// unrouted based on participant phone matches.
type Service struct {
	repo ContactFinder
	log  *logger.Logger

	// Role-class sets for the multi-project heuristic. Free-text contact
	// roles are matched against these after lowercasing; unlisted role
	// strings belong to neither class and are logged for a domain owner
	// to triage.
	managerRoles    map[string]bool
	contractorRoles map[string]bool
}

// NewService creates a correlation service with the default role taxonomy.
func NewService(repo ContactFinder, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		managerRoles: map[string]bool{
			"pm":              true,
			"project-manager": true,
			"project_manager": true,
			"bidlist_pm":      true,
		},
		contractorRoles: map[string]bool{
			"roofer":        true,
			"contractor":    true,
			"subcontractor": true,
			"vendor":        true,
		},
	}
}

// Correlate resolves the communication's phone participants to contacts and
// project associations.
//
// A thread between a project-manager-class contact and a contractor-class
// contact is always flagged multi-project, even when only a single project
// association exists: PM and contractor routinely discuss several active
// projects in one thread, and routing it to a single project would silently
// drop information.
func (s *Service) Correlate(ctx context.Context, c comms.Communication) (Result, error) {
	seen := make(map[uuid.UUID]bool)
	var matched []Contact

	for _, p := range c.PhoneParticipants() {
		contacts, err := s.repo.FindContactsByPhone(ctx, c.CompanyID, p.Value)
		if err != nil {
			return Result{}, err
		}
		for _, contact := range contacts {
			if !seen[contact.ID] {
				seen[contact.ID] = true
				matched = append(matched, contact)
			}
		}
	}

	if len(matched) == 0 {
		return Result{}, nil
	}

	contactIDs := make([]uuid.UUID, len(matched))
	for i, contact := range matched {
		contactIDs[i] = contact.ID
	}

	projectIDs, err := s.repo.ProjectsForContacts(ctx, contactIDs)
	if err != nil {
		return Result{}, err
	}

	result := Result{Contacts: matched}

	if s.spansRoleClasses(matched) {
		result.IsMultiProject = true
	}

	if len(projectIDs) == 1 {
		id := projectIDs[0]
		result.ProjectID = &id
	} else if len(projectIDs) > 1 {
		result.IsMultiProject = true
	}

	return result, nil
}

// spansRoleClasses reports whether the matched contacts include both a
// manager-class role and a contractor-class role.
func (s *Service) spansRoleClasses(contacts []Contact) bool {
	var hasManager, hasContractor bool
	for _, c := range contacts {
		role := strings.ToLower(strings.TrimSpace(c.Role))
		if role == "" {
			continue
		}
		switch {
		case s.managerRoles[role]:
			hasManager = true
		case s.contractorRoles[role]:
			hasContractor = true
		default:
			if s.log != nil {
				s.log.Debug("contact role outside known taxonomy", "role", role, "contact_id", c.ID)
			}
		}
	}
	return hasManager && hasContractor
}
