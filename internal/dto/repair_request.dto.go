package dto

import "github.com/BruksfildServices01/erms-api/internal/models"

type AssigneeDTO struct {
	TechnicianID uint   `json:"technicianId"`
	Name         string `json:"name"`
	AssignmentID uint   `json:"assignmentId"`
}

type RepairRequestDTO struct {
	models.RepairRequest
	CurrentAssignee *AssigneeDTO `json:"currentAssignee"`
}

// NewRepairRequestDTO attaches the current assignee; current and tech may be nil.
func NewRepairRequestDTO(r models.RepairRequest, current *models.Assignment, tech *models.User) RepairRequestDTO {
	out := RepairRequestDTO{RepairRequest: r}
	if current == nil {
		return out
	}
	a := &AssigneeDTO{
		TechnicianID: current.TechnicianID,
		AssignmentID: current.ID,
	}
	if tech != nil {
		a.Name = tech.FullName()
	}
	out.CurrentAssignee = a
	return out
}
