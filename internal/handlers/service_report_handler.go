package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/export"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	ucScheduling "github.com/BruksfildServices01/erms-api/internal/usecase/scheduling"
)

type ServiceReportHandler struct {
	db     *gorm.DB
	submit *ucScheduling.SubmitServiceReport
}

func NewServiceReportHandler(db *gorm.DB, submit *ucScheduling.SubmitServiceReport) *ServiceReportHandler {
	return &ServiceReportHandler{db: db, submit: submit}
}

// --------- Requests ---------

type CreateServiceReportRequest struct {
	RepairRequestID    uint                `json:"repairRequestId" binding:"required"`
	AssignedTo         uint                `json:"assignedTo"`
	Status             string              `json:"status"`
	ServiceDate        *time.Time          `json:"serviceDate"`
	TechnicianComments string              `json:"technicianComments"`
	ServicePerformed   string              `json:"servicePerformed"`
	PartsUsed          string              `json:"partsUsed"`
	FinalReadings      string              `json:"finalReadings"`
	ResultRating       string              `json:"resultRating" binding:"required"`
	TestResults        []models.TestResult `json:"testResults" binding:"required,min=1"`
	FeedbackRating     string              `json:"feedbackRating"`
	FeedbackComments   string              `json:"feedbackComments"`
}

// --------- Handlers ---------

func (h *ServiceReportHandler) Create(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req CreateServiceReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.submit.Execute(c.Request.Context(), sess, ucScheduling.SubmitServiceReportInput{
		RepairRequestID:    req.RepairRequestID,
		AssignedTo:         req.AssignedTo,
		Status:             req.Status,
		ServiceDate:        req.ServiceDate,
		TechnicianComments: req.TechnicianComments,
		ServicePerformed:   req.ServicePerformed,
		PartsUsed:          req.PartsUsed,
		FinalReadings:      req.FinalReadings,
		ResultRating:       req.ResultRating,
		TestResults:        req.TestResults,
		FeedbackRating:     req.FeedbackRating,
		FeedbackComments:   req.FeedbackComments,
	})
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_create_service_report")
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *ServiceReportHandler) List(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	q, ok := h.scoped(c, sess)
	if !ok {
		return
	}

	var reports []models.ServiceReport
	if err := q.Order("created_at DESC").Order("id DESC").Find(&reports).Error; err != nil {
		httperr.Internal(c, "failed_to_list_service_reports", "Could not list service reports.")
		return
	}

	httpresp.Collection(c, "serviceReports", reports, nil)
}

// Export streams the visible reports as an XLSX workbook.
func (h *ServiceReportHandler) Export(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	q, ok := h.scoped(c, sess)
	if !ok {
		return
	}

	var reports []models.ServiceReport
	if err := q.Order("service_date ASC").Order("id ASC").Find(&reports).Error; err != nil {
		httperr.Internal(c, "failed_to_list_service_reports", "Could not list service reports.")
		return
	}

	rows, err := h.exportRows(c, reports)
	if err != nil {
		httperr.Internal(c, "failed_to_export_service_reports", "Could not export service reports.")
		return
	}

	body, err := export.ServiceReportsXLSX(rows)
	if err != nil {
		httperr.Internal(c, "failed_to_export_service_reports", "Could not export service reports.")
		return
	}

	filename := fmt.Sprintf("service-reports-%s.xlsx", time.Now().Format(dateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.XLSXContentType, body)
}

// scoped limits technicians to their own reports and requesters to reports
// on their own requests. Optional filters: repairRequestId, assignedTo.
func (h *ServiceReportHandler) scoped(c *gin.Context, sess session.Session) (*gorm.DB, bool) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.ServiceReport{})

	switch {
	case sess.IsTechnician():
		q = q.Where("assigned_to = ?", sess.UserID)
	case sess.HasRole(models.RoleUser):
		sub := h.db.Model(&models.RepairRequest{}).Select("id").Where("user_id = ?", sess.UserID)
		q = q.Where("repair_request_id IN (?)", sub)
	}

	for _, f := range []struct{ param, column string }{
		{"repairRequestId", "repair_request_id"},
		{"assignedTo", "assigned_to"},
	} {
		v := c.Query(f.param)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_"+f.param, f.param+" must be numeric.")
			return nil, false
		}
		q = q.Where(f.column+" = ?", n)
	}
	return q, true
}

func (h *ServiceReportHandler) exportRows(c *gin.Context, reports []models.ServiceReport) ([]export.ServiceReportRow, error) {
	db := h.db.WithContext(c.Request.Context())

	reqIDs := make([]uint, 0, len(reports))
	techIDs := make([]uint, 0, len(reports))
	for _, r := range reports {
		reqIDs = append(reqIDs, r.RepairRequestID)
		techIDs = append(techIDs, r.AssignedTo)
	}

	requests := map[uint]models.RepairRequest{}
	techs := map[uint]models.User{}
	if len(reports) > 0 {
		var rr []models.RepairRequest
		if err := db.Unscoped().Where("id IN ?", reqIDs).Find(&rr).Error; err != nil {
			return nil, err
		}
		for _, r := range rr {
			requests[r.ID] = r
		}

		var users []models.User
		if err := db.Unscoped().Where("id IN ?", techIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			techs[u.ID] = u
		}
	}

	rows := make([]export.ServiceReportRow, 0, len(reports))
	for _, r := range reports {
		req := requests[r.RepairRequestID]
		tech := techs[r.AssignedTo]
		rows = append(rows, export.ServiceReportRow{
			Report:         r,
			RequestNumber:  req.RequestNumber,
			DeviceName:     req.DeviceName,
			TechnicianName: tech.FullName(),
		})
	}
	return rows, nil
}
