package scheduling

import (
	"regexp"

	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

var resultRatingPattern = regexp.MustCompile(`^\d+%$`)

func ValidResultRating(s string) bool {
	return resultRatingPattern.MatchString(s)
}

// ValidateReport checks the report fields that do not need storage.
func ValidateReport(r *models.ServiceReport) error {
	if !ValidResultRating(r.ResultRating) {
		return httperr.ErrBusiness("invalid_result_rating")
	}
	if len(r.TestResults) == 0 {
		return httperr.ErrBusiness("missing_test_results")
	}
	return nil
}

// CanSubmitReport checks that the report targets the request's current
// assignee and that the caller is that technician or an admin.
func CanSubmitReport(sess session.Session, current *models.Assignment, assignedTo uint) error {
	if current == nil {
		return httperr.ErrBusiness("assignment_not_found")
	}
	if current.TechnicianID != assignedTo {
		return httperr.ErrBusiness("not_current_assignee")
	}
	if sess.IsAdmin() {
		return nil
	}
	if !sess.IsTechnician() || sess.UserID != current.TechnicianID {
		return httperr.ErrBusiness("not_current_assignee")
	}
	return nil
}
