package dto

import (
	"time"

	"github.com/BruksfildServices01/erms-api/internal/models"
)

type AssignmentDTO struct {
	ID              uint      `json:"id"`
	RepairRequestID uint      `json:"repairRequestId"`
	TechnicianID    uint      `json:"technicianId"`
	AssignedByID    uint      `json:"assignedById"`
	AssignedAt      time.Time `json:"assignedAt"`
	Current         bool      `json:"current"`
}

func NewAssignmentDTO(a models.Assignment, current bool) AssignmentDTO {
	return AssignmentDTO{
		ID:              a.ID,
		RepairRequestID: a.RepairRequestID,
		TechnicianID:    a.TechnicianID,
		AssignedByID:    a.AssignedByID,
		AssignedAt:      a.AssignedAt,
		Current:         current,
	}
}

// AssignTechnicianResponse carries the display name used in the
// confirmation message.
type AssignTechnicianResponse struct {
	Assignment     AssignmentDTO       `json:"assignment"`
	Availability   models.Availability `json:"availability"`
	TechnicianName string              `json:"technicianName"`
	Message        string              `json:"message"`
}
