package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

func validReport(reqID uint) SubmitServiceReportInput {
	return SubmitServiceReportInput{
		RepairRequestID:  reqID,
		ServicePerformed: "Replaced fuser unit",
		ResultRating:     "95%",
		TestResults: []models.TestResult{
			{Test: "power on", Result: "pass"},
			{Test: "print page", Result: "pass"},
		},
	}
}

func assignedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	f.repo.addUser(technician(5, "Abebe", "Kebede"))
	f.repo.addUser(technician(6, "Sara", "Tesfaye"))
	f.repo.setAvailability(5, true)
	f.repo.addRequest(40, 30)

	_, err := f.assign.Execute(context.Background(), adminSession,
		AssignTechnicianInput{RepairRequestID: 40, TechnicianID: 5})
	require.NoError(t, err)
	return f
}

func TestSubmitServiceReport_FlipsTechnicianAvailable(t *testing.T) {
	f := assignedFixture(t)
	tech := session.New(5, models.RoleTechnician)
	f.repo.locks = nil

	report, err := f.report.Execute(context.Background(), tech, validReport(40))
	require.NoError(t, err)

	assert.NotZero(t, report.ID)
	assert.NotZero(t, report.AssignmentID)
	assert.Equal(t, uint(5), report.AssignedTo)
	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, "print page", report.TestResults[1].Test)

	av, _ := f.repo.availabilityOf(5)
	assert.True(t, av.IsAvailable)
	assert.Equal(t, callTime, av.StartTime)
	assert.Equal(t, av, f.lookup.stored[len(f.lookup.stored)-1])
	assert.Equal(t, []string{"request:40", "technician:5"}, f.repo.locks)

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Contains(t, last, domain.CollectionServiceReports)
}

func TestSubmitServiceReport_SecondReportRejected(t *testing.T) {
	f := assignedFixture(t)
	tech := session.New(5, models.RoleTechnician)

	_, err := f.report.Execute(context.Background(), tech, validReport(40))
	require.NoError(t, err)

	_, err = f.report.Execute(context.Background(), tech, validReport(40))
	assert.True(t, httperr.IsBusiness(err, "service_report_exists"))
}

func TestSubmitServiceReport_OnlyCurrentAssignee(t *testing.T) {
	f := assignedFixture(t)

	_, err := f.report.Execute(context.Background(), session.New(6, models.RoleTechnician), validReport(40))
	assert.True(t, httperr.IsBusiness(err, "not_current_assignee"))

	av, _ := f.repo.availabilityOf(5)
	assert.False(t, av.IsAvailable)
}

func TestSubmitServiceReport_AdminDefaultsToCurrentAssignee(t *testing.T) {
	f := assignedFixture(t)

	in := validReport(40)
	in.AssignedTo = 6
	_, err := f.report.Execute(context.Background(), adminSession, in)
	assert.True(t, httperr.IsBusiness(err, "not_current_assignee"))

	in.AssignedTo = 0
	report, err := f.report.Execute(context.Background(), adminSession, in)
	require.NoError(t, err)
	assert.Equal(t, uint(5), report.AssignedTo)
}

func TestSubmitServiceReport_ValidatesPayload(t *testing.T) {
	f := assignedFixture(t)
	tech := session.New(5, models.RoleTechnician)

	in := validReport(40)
	in.ResultRating = "ninety"
	_, err := f.report.Execute(context.Background(), tech, in)
	assert.True(t, httperr.IsBusiness(err, "invalid_result_rating"))

	in = validReport(40)
	in.TestResults = nil
	_, err = f.report.Execute(context.Background(), tech, in)
	assert.True(t, httperr.IsBusiness(err, "missing_test_results"))
}

func TestSubmitServiceReport_UnassignedRequest(t *testing.T) {
	f := newFixture()
	f.repo.addUser(technician(5, "A", "B"))
	f.repo.addRequest(41, 30)

	_, err := f.report.Execute(context.Background(), session.New(5, models.RoleTechnician), validReport(41))
	assert.True(t, httperr.IsBusiness(err, "assignment_not_found"))
}

func TestSubmitServiceReport_RequesterForbidden(t *testing.T) {
	f := assignedFixture(t)

	_, err := f.report.Execute(context.Background(), session.New(30, models.RoleUser), validReport(40))
	assert.True(t, httperr.IsBusiness(err, "forbidden"))
}
