package scheduling

import (
	"context"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/dto"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

type ListAssignments struct {
	repo domain.Repository
}

func NewListAssignments(repo domain.Repository) *ListAssignments {
	return &ListAssignments{repo: repo}
}

// Execute returns assignments newest first. Current is decided against the
// request's full history, so a technician filter never promotes a replaced
// assignment.
func (uc *ListAssignments) Execute(
	ctx context.Context,
	filter domain.AssignmentFilter,
) ([]dto.AssignmentDTO, error) {

	all, err := uc.repo.ListAssignments(ctx, domain.AssignmentFilter{
		RepairRequestID: filter.RepairRequestID,
	})
	if err != nil {
		return nil, err
	}

	byRequest := make(map[uint][]models.Assignment)
	for _, a := range all {
		byRequest[a.RepairRequestID] = append(byRequest[a.RepairRequestID], a)
	}
	currentByRequest := make(map[uint]uint, len(byRequest))
	for reqID, group := range byRequest {
		if cur := domain.CurrentAssignment(group); cur != nil {
			currentByRequest[reqID] = cur.ID
		}
	}

	out := make([]dto.AssignmentDTO, 0, len(all))
	for _, a := range all {
		if filter.TechnicianID != 0 && a.TechnicianID != filter.TechnicianID {
			continue
		}
		out = append(out, dto.NewAssignmentDTO(a, currentByRequest[a.RepairRequestID] == a.ID))
	}
	return out, nil
}
