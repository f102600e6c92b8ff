package scheduling

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

const defaultReportStatus = "completed"

type SubmitServiceReportInput struct {
	RepairRequestID uint
	// AssignedTo defaults to the caller when a technician submits and to the
	// current assignee when an admin submits.
	AssignedTo uint

	Status             string
	ServiceDate        *time.Time
	TechnicianComments string
	ServicePerformed   string
	PartsUsed          string
	FinalReadings      string
	ResultRating       string
	TestResults        []models.TestResult
	FeedbackRating     string
	FeedbackComments   string
}

type SubmitServiceReport struct {
	repo      domain.Repository
	lookup    domain.AvailabilityLookup
	publisher domain.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
	window    time.Duration
	log       *zap.Logger
}

func NewSubmitServiceReport(
	repo domain.Repository,
	lookup domain.AvailabilityLookup,
	publisher domain.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
	window time.Duration,
	log *zap.Logger,
) *SubmitServiceReport {
	if window <= 0 {
		window = domain.DefaultServiceWindow
	}
	return &SubmitServiceReport{
		repo:      repo,
		lookup:    lookup,
		publisher: publisher,
		audit:     audit,
		now:       now,
		window:    window,
		log:       log,
	}
}

// Execute stores the report and returns the technician to Available in the
// same transaction.
func (uc *SubmitServiceReport) Execute(
	ctx context.Context,
	sess session.Session,
	in SubmitServiceReportInput,
) (*models.ServiceReport, error) {

	if !sess.HasRole(models.RoleAdmin, models.RoleTechnician) {
		return nil, httperr.ErrBusiness("forbidden")
	}

	assignedTo := in.AssignedTo
	if assignedTo == 0 && sess.IsTechnician() {
		assignedTo = sess.UserID
	}

	now := uc.now()
	serviceDate := now
	if in.ServiceDate != nil {
		serviceDate = *in.ServiceDate
	}
	status := in.Status
	if status == "" {
		status = defaultReportStatus
	}

	report := &models.ServiceReport{
		RepairRequestID:    in.RepairRequestID,
		AssignedTo:         assignedTo,
		Status:             status,
		ServiceDate:        serviceDate,
		TechnicianComments: in.TechnicianComments,
		ServicePerformed:   in.ServicePerformed,
		PartsUsed:          in.PartsUsed,
		FinalReadings:      in.FinalReadings,
		ResultRating:       in.ResultRating,
		TestResults:        in.TestResults,
		FeedbackRating:     in.FeedbackRating,
		FeedbackComments:   in.FeedbackComments,
	}
	if err := domain.ValidateReport(report); err != nil {
		return nil, err
	}

	if _, err := uc.repo.GetRepairRequest(ctx, in.RepairRequestID); err != nil {
		return nil, err
	}

	var freed models.Availability
	err := uc.repo.Atomic(ctx, func(tx domain.Tx) error {
		if _, err := tx.LockRepairRequest(ctx, in.RepairRequestID); err != nil {
			return err
		}

		history, err := tx.ListAssignmentsForRequest(ctx, in.RepairRequestID)
		if err != nil {
			return err
		}
		current := domain.CurrentAssignment(history)
		if assignedTo == 0 && current != nil && sess.IsAdmin() {
			assignedTo = current.TechnicianID
			report.AssignedTo = assignedTo
		}
		if err := domain.CanSubmitReport(sess, current, assignedTo); err != nil {
			return err
		}

		exists, err := tx.ServiceReportExists(ctx, current.ID)
		if err != nil {
			return err
		}
		if exists {
			return httperr.ErrBusiness("service_report_exists")
		}

		report.AssignmentID = current.ID
		if err := tx.CreateServiceReport(ctx, report); err != nil {
			return err
		}

		av, err := tx.LockAvailability(ctx, current.TechnicianID)
		if err != nil {
			return err
		}
		av = domain.MarkAvailable(av, current.TechnicianID, now, uc.window)
		if err := tx.SaveAvailability(ctx, av); err != nil {
			return err
		}
		freed = *av
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.lookup.Store(ctx, freed)
	uc.publisher.Publish(ctx,
		domain.CollectionServiceReports,
		domain.CollectionAvailability,
		domain.CollectionTechniciansAvailable,
	)

	uc.audit.Dispatch(audit.Event{
		UserID:   &sess.UserID,
		Action:   "service_report_created",
		Entity:   "service_report",
		EntityID: &report.ID,
		Metadata: map[string]any{
			"repair_request_id": report.RepairRequestID,
			"assignment_id":     report.AssignmentID,
		},
	})

	uc.log.Info("service report submitted",
		zap.Uint("repair_request_id", report.RepairRequestID),
		zap.Uint("technician_id", assignedTo),
	)

	return report, nil
}
