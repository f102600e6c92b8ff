package scheduling

import (
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

// CurrentAssignment returns the latest assignment by AssignedAt, ties broken
// by the highest id. Nil for an empty slice.
func CurrentAssignment(assignments []models.Assignment) *models.Assignment {
	var current *models.Assignment
	for i := range assignments {
		a := &assignments[i]
		if current == nil ||
			a.AssignedAt.After(current.AssignedAt) ||
			(a.AssignedAt.Equal(current.AssignedAt) && a.ID > current.ID) {
			current = a
		}
	}
	return current
}

// ===============================
// Validations
// ===============================

// CanAssignTechnician checks that user may receive an assignment at all.
func CanAssignTechnician(user *models.User) error {
	if user == nil {
		return httperr.ErrBusiness("technician_not_found")
	}
	if !user.IsTechnician() {
		return httperr.ErrBusiness("not_a_technician")
	}
	if !user.IsActive() {
		return httperr.ErrBusiness("technician_inactive")
	}
	return nil
}

// CanTakeAssignment checks the locked availability row. Only a Busy record
// blocks; a missing record is seeded by the assignment itself.
func CanTakeAssignment(av *models.Availability) error {
	if EligibilityOf(av) == EligibilityBusy {
		return httperr.ErrBusiness("technician_busy")
	}
	return nil
}
