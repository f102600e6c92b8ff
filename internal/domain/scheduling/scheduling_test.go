package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

func TestEligibilityTriState(t *testing.T) {
	assert.Equal(t, EligibilityUnknown, EligibilityOf(nil))
	assert.Equal(t, EligibilityAvailable, EligibilityOf(&models.Availability{IsAvailable: true}))
	assert.Equal(t, EligibilityBusy, EligibilityOf(&models.Availability{IsAvailable: false}))

	assert.True(t, EligibilityAvailable.Assignable(NoRecordExclude))
	assert.False(t, EligibilityBusy.Assignable(NoRecordAvailable))
	assert.False(t, EligibilityUnknown.Assignable(NoRecordExclude))
	assert.True(t, EligibilityUnknown.Assignable(NoRecordAvailable))
}

func TestParseNoRecordPolicy(t *testing.T) {
	assert.Equal(t, NoRecordAvailable, ParseNoRecordPolicy("available"))
	assert.Equal(t, NoRecordExclude, ParseNoRecordPolicy("exclude"))
	assert.Equal(t, NoRecordExclude, ParseNoRecordPolicy(""))
}

func TestMarkBusyUsesExactWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	av := MarkBusy(nil, 7, now, DefaultServiceWindow)

	assert.Equal(t, uint(7), av.UserID)
	assert.False(t, av.IsAvailable)
	assert.Equal(t, now, av.StartTime)
	assert.Equal(t, 8*time.Hour, av.EndTime.Sub(av.StartTime))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), av.Date)
}

func TestMarkAvailableKeepsRecordIdentity(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	existing := &models.Availability{ID: 3, UserID: 7, IsAvailable: false}

	av := MarkAvailable(existing, 7, now, DefaultServiceWindow)

	assert.Same(t, existing, av)
	assert.Equal(t, uint(3), av.ID)
	assert.True(t, av.IsAvailable)
	assert.Equal(t, now, av.StartTime)
}

func TestApplyOverride(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	yes := true

	_, err := ApplyOverride(nil, 1, AvailabilityOverride{StartTime: &start, EndTime: &end})
	assert.True(t, httperr.IsBusiness(err, "invalid_time_window"))

	av, err := ApplyOverride(&models.Availability{UserID: 1}, 1, AvailabilityOverride{IsAvailable: &yes})
	require.NoError(t, err)
	assert.True(t, av.IsAvailable)
}

func TestCurrentAssignment(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	assert.Nil(t, CurrentAssignment(nil))

	list := []models.Assignment{
		{ID: 1, TechnicianID: 10, AssignedAt: t0},
		{ID: 2, TechnicianID: 11, AssignedAt: t0.Add(time.Hour)},
		{ID: 3, TechnicianID: 12, AssignedAt: t0.Add(30 * time.Minute)},
	}
	assert.Equal(t, uint(11), CurrentAssignment(list).TechnicianID)

	tied := []models.Assignment{
		{ID: 5, TechnicianID: 20, AssignedAt: t0},
		{ID: 4, TechnicianID: 21, AssignedAt: t0},
	}
	assert.Equal(t, uint(20), CurrentAssignment(tied).TechnicianID)
}

func TestCanAssignTechnician(t *testing.T) {
	assert.True(t, httperr.IsBusiness(CanAssignTechnician(nil), "technician_not_found"))
	assert.True(t, httperr.IsBusiness(
		CanAssignTechnician(&models.User{RoleID: models.RoleUser}), "not_a_technician"))
	assert.True(t, httperr.IsBusiness(
		CanAssignTechnician(&models.User{RoleID: models.RoleTechnician, Status: models.UserStatusInactive}),
		"technician_inactive"))
	assert.NoError(t, CanAssignTechnician(&models.User{RoleID: models.RoleTechnician, Status: models.UserStatusActive}))
}

func TestCanTakeAssignment(t *testing.T) {
	assert.NoError(t, CanTakeAssignment(nil))
	assert.NoError(t, CanTakeAssignment(&models.Availability{IsAvailable: true}))
	assert.True(t, httperr.IsBusiness(CanTakeAssignment(&models.Availability{IsAvailable: false}), "technician_busy"))
}

func TestValidateReport(t *testing.T) {
	r := &models.ServiceReport{
		ResultRating: "95%",
		TestResults:  []models.TestResult{{Test: "power", Result: "ok"}},
	}
	assert.NoError(t, ValidateReport(r))

	r.ResultRating = "95"
	assert.True(t, httperr.IsBusiness(ValidateReport(r), "invalid_result_rating"))

	r.ResultRating = "100%"
	r.TestResults = nil
	assert.True(t, httperr.IsBusiness(ValidateReport(r), "missing_test_results"))
}

func TestCanSubmitReport(t *testing.T) {
	current := &models.Assignment{ID: 9, TechnicianID: 7}

	assert.NoError(t, CanSubmitReport(session.New(7, models.RoleTechnician), current, 7))
	assert.NoError(t, CanSubmitReport(session.New(1, models.RoleAdmin), current, 7))

	assert.True(t, httperr.IsBusiness(
		CanSubmitReport(session.New(8, models.RoleTechnician), current, 7), "not_current_assignee"))
	assert.True(t, httperr.IsBusiness(
		CanSubmitReport(session.New(1, models.RoleAdmin), current, 8), "not_current_assignee"))
	assert.True(t, httperr.IsBusiness(
		CanSubmitReport(session.New(7, models.RoleTechnician), nil, 7), "assignment_not_found"))
}
