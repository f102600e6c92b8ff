package scheduling

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type AssignTechnicianInput struct {
	RepairRequestID uint
	TechnicianID    uint
}

type AssignTechnicianResult struct {
	Assignment     models.Assignment
	Availability   models.Availability
	TechnicianName string
}

// ======================================================
// USE CASE
// ======================================================

type AssignTechnician struct {
	repo      domain.Repository
	lookup    domain.AvailabilityLookup
	publisher domain.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
	window    time.Duration
	log       *zap.Logger
}

func NewAssignTechnician(
	repo domain.Repository,
	lookup domain.AvailabilityLookup,
	publisher domain.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
	window time.Duration,
	log *zap.Logger,
) *AssignTechnician {
	if window <= 0 {
		window = domain.DefaultServiceWindow
	}
	return &AssignTechnician{
		repo:      repo,
		lookup:    lookup,
		publisher: publisher,
		audit:     audit,
		now:       now,
		window:    window,
		log:       log,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *AssignTechnician) Execute(
	ctx context.Context,
	sess session.Session,
	in AssignTechnicianInput,
) (*AssignTechnicianResult, error) {

	if !sess.IsAdmin() {
		return nil, httperr.ErrBusiness("forbidden")
	}

	// --------------------------------------------------
	// 1. Request and technician
	// --------------------------------------------------
	req, err := uc.repo.GetRepairRequest(ctx, in.RepairRequestID)
	if err != nil {
		return nil, err
	}

	tech, err := uc.repo.GetUser(ctx, in.TechnicianID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanAssignTechnician(tech); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 2. Assignment + busy window, one transaction
	// --------------------------------------------------
	now := uc.now()
	result := &AssignTechnicianResult{TechnicianName: tech.FullName()}
	var released *models.Availability

	err = uc.repo.Atomic(ctx, func(tx domain.Tx) error {
		// request row first, so reassignments of one request serialize
		if _, err := tx.LockRepairRequest(ctx, req.ID); err != nil {
			return err
		}

		history, err := tx.ListAssignmentsForRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		previous := domain.CurrentAssignment(history)
		if previous != nil && previous.TechnicianID == tech.ID {
			previous = nil
		}

		locked, err := lockTechnicians(ctx, tx, tech.ID, previous)
		if err != nil {
			return err
		}

		av := locked[tech.ID]
		if err := domain.CanTakeAssignment(av); err != nil {
			return err
		}

		result.Assignment = models.Assignment{
			RepairRequestID: req.ID,
			TechnicianID:    tech.ID,
			AssignedByID:    sess.UserID,
			AssignedAt:      now,
		}
		if err := tx.CreateAssignment(ctx, &result.Assignment); err != nil {
			return err
		}

		av = domain.MarkBusy(av, tech.ID, now, uc.window)
		if err := tx.SaveAvailability(ctx, av); err != nil {
			return err
		}
		result.Availability = *av

		if previous != nil {
			released, err = uc.releasePrevious(ctx, tx, previous, locked[previous.TechnicianID], now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 3. Refresh triggers
	// --------------------------------------------------
	uc.lookup.Store(ctx, result.Availability)
	var releasedID uint
	if released != nil {
		releasedID = released.UserID
		uc.lookup.Store(ctx, *released)
	}
	uc.publisher.Publish(ctx,
		domain.CollectionAssignments,
		domain.CollectionAvailability,
		domain.CollectionTechniciansAvailable,
		domain.CollectionRepairRequests,
	)

	// --------------------------------------------------
	// 4. Audit
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		UserID:   &sess.UserID,
		Action:   "assignment_created",
		Entity:   "assignment",
		EntityID: &result.Assignment.ID,
		Metadata: map[string]any{
			"repair_request_id": req.ID,
			"technician_id":     tech.ID,
			"released":          releasedID,
		},
	})

	uc.log.Info("technician assigned",
		zap.Uint("repair_request_id", req.ID),
		zap.Uint("technician_id", tech.ID),
		zap.Uint("assigned_by", sess.UserID),
	)

	return result, nil
}

// lockTechnicians locks the new technician and the one being replaced in
// ascending id order. A replaced technician who no longer exists is skipped.
func lockTechnicians(
	ctx context.Context,
	tx domain.Tx,
	techID uint,
	previous *models.Assignment,
) (map[uint]*models.Availability, error) {

	ids := []uint{techID}
	if previous != nil {
		ids = append(ids, previous.TechnicianID)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	locked := make(map[uint]*models.Availability, len(ids))
	for _, id := range ids {
		av, err := tx.LockAvailability(ctx, id)
		if id != techID && httperr.IsBusiness(err, "technician_not_found") {
			continue
		}
		if err != nil {
			return nil, err
		}
		locked[id] = av
	}
	return locked, nil
}

// releasePrevious frees the technician being replaced on a request, unless
// they already reported on it or are busy elsewhere. It returns the saved
// record, or nil when nothing changed.
func (uc *AssignTechnician) releasePrevious(
	ctx context.Context,
	tx domain.Tx,
	previous *models.Assignment,
	av *models.Availability,
	now time.Time,
) (*models.Availability, error) {

	reported, err := tx.ServiceReportExists(ctx, previous.ID)
	if err != nil || reported {
		return nil, err
	}

	if domain.EligibilityOf(av) != domain.EligibilityBusy {
		return nil, nil
	}
	// A busy window that began after this assignment belongs to other work.
	if av.StartTime.After(previous.AssignedAt) {
		return nil, nil
	}

	av = domain.MarkAvailable(av, previous.TechnicianID, now, uc.window)
	if err := tx.SaveAvailability(ctx, av); err != nil {
		return nil, err
	}
	return av, nil
}
