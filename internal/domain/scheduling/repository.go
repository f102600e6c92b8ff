package scheduling

import (
	"context"

	"github.com/BruksfildServices01/erms-api/internal/models"
)

type AssignmentFilter struct {
	TechnicianID    uint
	RepairRequestID uint
}

type Repository interface {
	// -------- Roster --------
	ListTechnicians(ctx context.Context) ([]models.User, error)

	GetUser(ctx context.Context, id uint) (*models.User, error)

	// -------- Repair requests --------
	GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error)

	// -------- Availability --------

	// GetAvailability returns nil, nil when the technician has no record.
	GetAvailability(ctx context.Context, technicianID uint) (*models.Availability, error)

	ListAvailability(ctx context.Context) ([]models.Availability, error)

	// -------- Assignments --------
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)

	// -------- Atomic workflows --------
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes that must commit together. Rows are locked in a
// fixed order: the repair request first, then technicians by ascending id.
type Tx interface {
	// LockRepairRequest reads the request FOR UPDATE so assignments to the
	// same request serialize.
	LockRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error)

	// LockAvailability reads the technician's record FOR UPDATE. Nil, nil
	// when no record exists.
	LockAvailability(ctx context.Context, technicianID uint) (*models.Availability, error)

	SaveAvailability(ctx context.Context, av *models.Availability) error

	CreateAssignment(ctx context.Context, a *models.Assignment) error

	ListAssignmentsForRequest(ctx context.Context, repairRequestID uint) ([]models.Assignment, error)

	ServiceReportExists(ctx context.Context, assignmentID uint) (bool, error)

	CreateServiceReport(ctx context.Context, r *models.ServiceReport) error
}

// AvailabilityLookup resolves a technician's latest availability record,
// nil, nil when none exists.
type AvailabilityLookup interface {
	Lookup(ctx context.Context, technicianID uint) (*models.Availability, error)
	// Store publishes a committed record to readers.
	Store(ctx context.Context, av models.Availability)
}

// Publisher announces which collections changed so views can re-fetch.
type Publisher interface {
	Publish(ctx context.Context, collections ...string)
}

const (
	CollectionAssignments          = "assignments"
	CollectionAvailability         = "availability"
	CollectionTechniciansAvailable = "technicians-available"
	CollectionServiceReports       = "service-reports"
	CollectionUserFeedbacks        = "user-feedbacks"
	CollectionRepairRequests       = "repair-requests"
)
