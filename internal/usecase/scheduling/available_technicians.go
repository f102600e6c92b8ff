package scheduling

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

const defaultLookupConcurrency = 8

// ======================================================
// COMPUTE (Availability Index)
// ======================================================

// ComputeAvailableTechnicians filters a roster down to the technicians whose
// latest availability makes them assignable. It is recomputed in full on
// every call and never writes.
type ComputeAvailableTechnicians struct {
	lookup domain.AvailabilityLookup
	policy domain.NoRecordPolicy
	limit  int
	log    *zap.Logger
}

func NewComputeAvailableTechnicians(
	lookup domain.AvailabilityLookup,
	policy domain.NoRecordPolicy,
	log *zap.Logger,
) *ComputeAvailableTechnicians {
	return &ComputeAvailableTechnicians{
		lookup: lookup,
		policy: policy,
		limit:  defaultLookupConcurrency,
		log:    log,
	}
}

// Execute keeps roster order. A technician whose lookup fails is left out
// and the rest of the roster is still evaluated.
func (uc *ComputeAvailableTechnicians) Execute(
	ctx context.Context,
	technicians []models.User,
) []models.User {

	eligible := make([]bool, len(technicians))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.limit)

	for i := range technicians {
		g.Go(func() error {
			av, err := uc.lookup.Lookup(gctx, technicians[i].ID)
			if err != nil {
				uc.log.Warn("availability lookup failed, excluding technician",
					zap.Uint("technician_id", technicians[i].ID),
					zap.Error(err),
				)
				return nil
			}
			eligible[i] = domain.EligibilityOf(av).Assignable(uc.policy)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.User, 0, len(technicians))
	for i, ok := range eligible {
		if ok {
			out = append(out, technicians[i])
		}
	}
	return out
}

// ======================================================
// LIST (roster + index)
// ======================================================

type ListAvailableTechnicians struct {
	repo    domain.Repository
	compute *ComputeAvailableTechnicians
}

func NewListAvailableTechnicians(
	repo domain.Repository,
	compute *ComputeAvailableTechnicians,
) *ListAvailableTechnicians {
	return &ListAvailableTechnicians{
		repo:    repo,
		compute: compute,
	}
}

func (uc *ListAvailableTechnicians) Execute(ctx context.Context) ([]models.User, error) {
	roster, err := uc.repo.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	return uc.compute.Execute(ctx, roster), nil
}
