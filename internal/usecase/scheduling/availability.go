package scheduling

import (
	"context"
	"time"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

// ======================================================
// GET
// ======================================================

type GetAvailability struct {
	lookup domain.AvailabilityLookup
}

func NewGetAvailability(lookup domain.AvailabilityLookup) *GetAvailability {
	return &GetAvailability{lookup: lookup}
}

func (uc *GetAvailability) Execute(ctx context.Context, technicianID uint) (*models.Availability, error) {
	av, err := uc.lookup.Lookup(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if av == nil {
		return nil, httperr.ErrBusiness("availability_not_found")
	}
	return av, nil
}

// ======================================================
// LIST
// ======================================================

type ListAvailability struct {
	repo domain.Repository
}

func NewListAvailability(repo domain.Repository) *ListAvailability {
	return &ListAvailability{repo: repo}
}

func (uc *ListAvailability) Execute(ctx context.Context) ([]models.Availability, error) {
	return uc.repo.ListAvailability(ctx)
}

// ======================================================
// UPDATE (manual override)
// ======================================================

type UpdateAvailability struct {
	repo      domain.Repository
	lookup    domain.AvailabilityLookup
	publisher domain.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
	window    time.Duration
}

func NewUpdateAvailability(
	repo domain.Repository,
	lookup domain.AvailabilityLookup,
	publisher domain.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
	window time.Duration,
) *UpdateAvailability {
	if window <= 0 {
		window = domain.DefaultServiceWindow
	}
	return &UpdateAvailability{
		repo:      repo,
		lookup:    lookup,
		publisher: publisher,
		audit:     audit,
		now:       now,
		window:    window,
	}
}

func (uc *UpdateAvailability) Execute(
	ctx context.Context,
	sess session.Session,
	technicianID uint,
	in domain.AvailabilityOverride,
) (*models.Availability, error) {

	if !sess.IsAdmin() {
		return nil, httperr.ErrBusiness("forbidden")
	}

	tech, err := uc.repo.GetUser(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !tech.IsTechnician() {
		return nil, httperr.ErrBusiness("not_a_technician")
	}

	var saved models.Availability
	err = uc.repo.Atomic(ctx, func(tx domain.Tx) error {
		av, err := tx.LockAvailability(ctx, technicianID)
		if err != nil {
			return err
		}
		if av == nil {
			// seed a window so a partial override still yields a full record
			av = domain.MarkAvailable(nil, technicianID, uc.now(), uc.window)
		}

		av, err = domain.ApplyOverride(av, technicianID, in)
		if err != nil {
			return err
		}
		if err := tx.SaveAvailability(ctx, av); err != nil {
			return err
		}
		saved = *av
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.lookup.Store(ctx, saved)
	uc.publisher.Publish(ctx,
		domain.CollectionAvailability,
		domain.CollectionTechniciansAvailable,
	)

	uc.audit.Dispatch(audit.Event{
		UserID:   &sess.UserID,
		Action:   "availability_updated",
		Entity:   "availability",
		EntityID: &saved.ID,
		Metadata: map[string]any{
			"technician_id": technicianID,
			"is_available":  saved.IsAvailable,
		},
	})

	return &saved, nil
}
