package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/dto"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

var repairRequestSort = map[string]string{
	"requestDate":   "request_date",
	"createdAt":     "created_at",
	"requestNumber": "request_number",
	"deviceName":    "device_name",
	"priority":      "CASE priority WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 ELSE 1 END",
}

type RepairRequestHandler struct {
	db        *gorm.DB
	publisher scheduling.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
}

func NewRepairRequestHandler(
	db *gorm.DB,
	publisher scheduling.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
) *RepairRequestHandler {
	return &RepairRequestHandler{db: db, publisher: publisher, audit: audit, now: now}
}

// --------- Requests ---------

type CreateRepairRequestRequest struct {
	Department         string `json:"department"`
	Faculty            string `json:"faculty"`
	Block              string `json:"block"`
	Office             string `json:"office"`
	RequesterName      string `json:"requesterName"`
	ContactPhone       string `json:"contactPhone"`
	DeviceName         string `json:"deviceName" binding:"required"`
	DeviceModel        string `json:"deviceModel"`
	SerialNumber       string `json:"serialNumber"`
	AssetNumber        string `json:"assetNumber"`
	ProblemDescription string `json:"problemDescription" binding:"required"`
	Priority           string `json:"priority"`
}

// newRequestNumber renders REQ-<date>-<suffix>.
func newRequestNumber(c timezone.Clock) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("REQ-%s-%s", c().Format(dateLayout), suffix)
}

// --------- Handlers ---------

func (h *RepairRequestHandler) Create(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req CreateRepairRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		httperr.BadRequest(c, "invalid_priority", "Priority must be Low, Medium or High.")
		return
	}

	rr := models.RepairRequest{
		RequestNumber:      newRequestNumber(h.now),
		RequestDate:        h.now(),
		UserID:             sess.UserID,
		Department:         req.Department,
		Faculty:            req.Faculty,
		Block:              req.Block,
		Office:             req.Office,
		RequesterName:      req.RequesterName,
		ContactPhone:       req.ContactPhone,
		DeviceName:         strings.TrimSpace(req.DeviceName),
		DeviceModel:        req.DeviceModel,
		SerialNumber:       req.SerialNumber,
		AssetNumber:        req.AssetNumber,
		ProblemDescription: strings.TrimSpace(req.ProblemDescription),
		Priority:           priority,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&rr).Error; err != nil {
		httperr.FromBusiness(c, err, "failed_to_create_repair_request")
		return
	}

	h.publisher.Publish(c.Request.Context(), scheduling.CollectionRepairRequests)
	writeAudit(h.audit, sess, "repair_request_created", "repair_request", rr.ID, gin.H{
		"requestNumber": rr.RequestNumber,
		"priority":      rr.Priority,
	})

	c.JSON(http.StatusCreated, dto.NewRepairRequestDTO(rr, nil, nil))
}

// List returns requests with their current assignee. Requesters only see
// their own requests and technicians only those currently assigned to them.
func (h *RepairRequestHandler) List(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.RepairRequest{})

	if sess.HasRole(models.RoleUser) {
		q = q.Where("user_id = ?", sess.UserID)
	}

	if priority := c.Query("priority"); priority != "" {
		if !models.IsValidPriority(priority) {
			httperr.BadRequest(c, "invalid_priority", "Priority must be Low, Medium or High.")
			return
		}
		q = q.Where("priority = ?", priority)
	}

	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"LOWER(request_number) LIKE ? OR LOWER(device_name) LIKE ? OR LOWER(requester_name) LIKE ? OR LOWER(department) LIKE ?",
			like, like, like, like,
		)
	}

	column, known := repairRequestSort[c.DefaultQuery("sort", "createdAt")]
	if !known {
		httperr.BadRequest(c, "invalid_sort", "Unsupported sort field.")
		return
	}
	direction := "DESC"
	if strings.EqualFold(c.Query("order"), "asc") {
		direction = "ASC"
	}

	var requests []models.RepairRequest
	if err := q.
		Order(column + " " + direction).
		Order("id " + direction).
		Find(&requests).Error; err != nil {

		httperr.Internal(c, "failed_to_list_repair_requests", "Could not list repair requests.")
		return
	}

	out, err := h.withAssignees(c, requests)
	if err != nil {
		httperr.Internal(c, "failed_to_list_repair_requests", "Could not list repair requests.")
		return
	}

	if sess.IsTechnician() {
		out = assignedTo(out, sess)
	}

	httpresp.Collection(c, "repairRequests", out, nil)
}

func (h *RepairRequestHandler) Get(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	rr, ok := h.load(c, id)
	if !ok {
		return
	}
	if sess.HasRole(models.RoleUser) && rr.UserID != sess.UserID {
		httperr.NotFound(c, "repair_request_not_found", "Repair request not found.")
		return
	}

	out, err := h.withAssignees(c, []models.RepairRequest{*rr})
	if err != nil {
		httperr.Internal(c, "failed_to_get_repair_request", "Could not load repair request.")
		return
	}

	c.JSON(http.StatusOK, out[0])
}

func (h *RepairRequestHandler) Delete(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	rr, ok := h.load(c, id)
	if !ok {
		return
	}
	if !sess.IsAdmin() && rr.UserID != sess.UserID {
		httperr.Forbidden(c, "forbidden", "You are not allowed to perform this action.")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(rr).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_repair_request", "Could not delete repair request.")
		return
	}

	h.publisher.Publish(c.Request.Context(), scheduling.CollectionRepairRequests)
	writeAudit(h.audit, sess, "repair_request_deleted", "repair_request", rr.ID, nil)

	c.JSON(http.StatusOK, gin.H{"message": "Repair request deleted successfully."})
}

func (h *RepairRequestHandler) load(c *gin.Context, id uint) (*models.RepairRequest, bool) {
	var rr models.RepairRequest
	if err := h.db.WithContext(c.Request.Context()).First(&rr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "repair_request_not_found", "Repair request not found.")
			return nil, false
		}
		httperr.Internal(c, "failed_to_get_repair_request", "Could not load repair request.")
		return nil, false
	}
	return &rr, true
}

// withAssignees resolves the current assignment of every request from its
// full assignment history.
func (h *RepairRequestHandler) withAssignees(
	c *gin.Context,
	requests []models.RepairRequest,
) ([]dto.RepairRequestDTO, error) {

	out := make([]dto.RepairRequestDTO, 0, len(requests))
	if len(requests) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}

	db := h.db.WithContext(c.Request.Context())

	var history []models.Assignment
	if err := db.Where("repair_request_id IN ?", ids).Find(&history).Error; err != nil {
		return nil, err
	}

	byRequest := make(map[uint][]models.Assignment, len(requests))
	for _, a := range history {
		byRequest[a.RepairRequestID] = append(byRequest[a.RepairRequestID], a)
	}

	current := make(map[uint]*models.Assignment, len(byRequest))
	techIDs := make([]uint, 0, len(byRequest))
	for reqID, list := range byRequest {
		cur := scheduling.CurrentAssignment(list)
		current[reqID] = cur
		techIDs = append(techIDs, cur.TechnicianID)
	}

	techs := make(map[uint]*models.User, len(techIDs))
	if len(techIDs) > 0 {
		var users []models.User
		if err := db.Unscoped().Where("id IN ?", techIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			techs[users[i].ID] = &users[i]
		}
	}

	for _, r := range requests {
		cur := current[r.ID]
		var tech *models.User
		if cur != nil {
			tech = techs[cur.TechnicianID]
		}
		out = append(out, dto.NewRepairRequestDTO(r, cur, tech))
	}
	return out, nil
}

func assignedTo(rows []dto.RepairRequestDTO, sess session.Session) []dto.RepairRequestDTO {
	out := rows[:0]
	for _, r := range rows {
		if r.CurrentAssignee != nil && r.CurrentAssignee.TechnicianID == sess.UserID {
			out = append(out, r)
		}
	}
	return out
}
