package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

func Conflict(c *gin.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

type businessMapping struct {
	status  int
	message string
}

var businessStatus = map[string]businessMapping{
	"technician_busy":          {http.StatusConflict, "Technician is currently busy."},
	"service_report_exists":    {http.StatusConflict, "A service report already exists for this assignment."},
	"duplicate_entry":          {http.StatusConflict, "Resource already exists."},
	"repair_request_not_found": {http.StatusNotFound, "Repair request not found."},
	"technician_not_found":     {http.StatusNotFound, "Technician not found."},
	"assignment_not_found":     {http.StatusNotFound, "No assignment found for this repair request."},
	"service_report_not_found": {http.StatusNotFound, "Service report not found."},
	"availability_not_found":   {http.StatusNotFound, "Availability record not found."},
	"not_a_technician":         {http.StatusUnprocessableEntity, "User is not a technician."},
	"technician_inactive":      {http.StatusUnprocessableEntity, "Technician account is inactive."},
	"invalid_feedback_bucket":  {http.StatusBadRequest, "Invalid feedback rating."},
	"invalid_result_rating":    {http.StatusBadRequest, "Result rating must look like 95%."},
	"missing_test_results":     {http.StatusBadRequest, "At least one test result is required."},
	"invalid_time_window":      {http.StatusBadRequest, "End time must not be before start time."},
	"not_current_assignee":     {http.StatusForbidden, "Only the assigned technician can submit this report."},
	"forbidden":                {http.StatusForbidden, "You are not allowed to perform this action."},
}

// FromBusiness writes a business error with its mapped status. Errors that
// are not business errors become 500 with fallbackCode.
func FromBusiness(c *gin.Context, err error, fallbackCode string) {
	code, ok := BusinessCode(err)
	if !ok {
		if IsUniqueViolation(err) {
			Conflict(c, "duplicate_entry", businessStatus["duplicate_entry"].message)
			return
		}
		Internal(c, fallbackCode, "Internal error.")
		return
	}

	m, known := businessStatus[code]
	if !known {
		BadRequest(c, code, code)
		return
	}
	Write(c, m.status, code, m.message)
}
