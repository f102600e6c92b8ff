package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/dto"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	ucScheduling "github.com/BruksfildServices01/erms-api/internal/usecase/scheduling"
)

// ======================================================
// HANDLER
// ======================================================

type SchedulingHandler struct {
	availableTechnicians *ucScheduling.ListAvailableTechnicians
	assignTechnician     *ucScheduling.AssignTechnician
	listAssignments      *ucScheduling.ListAssignments
	getAvailability      *ucScheduling.GetAvailability
	listAvailability     *ucScheduling.ListAvailability
	updateAvailability   *ucScheduling.UpdateAvailability
}

func NewSchedulingHandler(
	availableTechnicians *ucScheduling.ListAvailableTechnicians,
	assignTechnician *ucScheduling.AssignTechnician,
	listAssignments *ucScheduling.ListAssignments,
	getAvailability *ucScheduling.GetAvailability,
	listAvailability *ucScheduling.ListAvailability,
	updateAvailability *ucScheduling.UpdateAvailability,
) *SchedulingHandler {
	return &SchedulingHandler{
		availableTechnicians: availableTechnicians,
		assignTechnician:     assignTechnician,
		listAssignments:      listAssignments,
		getAvailability:      getAvailability,
		listAvailability:     listAvailability,
		updateAvailability:   updateAvailability,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type AssignTechnicianRequest struct {
	RepairRequestID uint `json:"repairRequestId" binding:"required"`
	TechnicianID    uint `json:"technicianId" binding:"required"`
}

type UpdateAvailabilityRequest struct {
	IsAvailable *bool      `json:"isAvailable"`
	Date        *string    `json:"date"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

// ======================================================
// AVAILABLE TECHNICIANS
// ======================================================

func (h *SchedulingHandler) AvailableTechnicians(c *gin.Context) {
	techs, err := h.availableTechnicians.Execute(c.Request.Context())
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_list_available_technicians")
		return
	}
	httpresp.List(c, techs)
}

// ======================================================
// ASSIGNMENTS
// ======================================================

func (h *SchedulingHandler) Assign(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.assignTechnician.Execute(c.Request.Context(), sess, ucScheduling.AssignTechnicianInput{
		RepairRequestID: req.RepairRequestID,
		TechnicianID:    req.TechnicianID,
	})
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_assign_technician")
		return
	}

	c.JSON(http.StatusCreated, dto.AssignTechnicianResponse{
		Assignment:     dto.NewAssignmentDTO(res.Assignment, true),
		Availability:   res.Availability,
		TechnicianName: res.TechnicianName,
		Message:        fmt.Sprintf("Technician %s assigned successfully.", res.TechnicianName),
	})
}

func (h *SchedulingHandler) ListAssignments(c *gin.Context) {
	var filter scheduling.AssignmentFilter

	for _, f := range []struct {
		param string
		dst   *uint
	}{
		{"technicianId", &filter.TechnicianID},
		{"repairRequestId", &filter.RepairRequestID},
	} {
		v := c.Query(f.param)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_"+f.param, f.param+" must be numeric.")
			return
		}
		*f.dst = uint(n)
	}

	out, err := h.listAssignments.Execute(c.Request.Context(), filter)
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_list_assignments")
		return
	}
	httpresp.List(c, out)
}

// ======================================================
// AVAILABILITY
// ======================================================

func (h *SchedulingHandler) ListAvailability(c *gin.Context) {
	out, err := h.listAvailability.Execute(c.Request.Context())
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_list_availability")
		return
	}
	httpresp.List(c, out)
}

func (h *SchedulingHandler) GetAvailability(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	av, err := h.getAvailability.Execute(c.Request.Context(), id)
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_get_availability")
		return
	}
	c.JSON(http.StatusOK, av)
}

func (h *SchedulingHandler) UpdateAvailability(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := scheduling.AvailabilityOverride{
		IsAvailable: req.IsAvailable,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	if req.Date != nil {
		d, err := parseFlexibleDate(*req.Date)
		if err != nil {
			httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD or RFC 3339.")
			return
		}
		in.Date = &d
	}

	av, err := h.updateAvailability.Execute(c.Request.Context(), sess, id, in)
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_update_availability")
		return
	}
	c.JSON(http.StatusOK, av)
}

func parseFlexibleDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return parseDate(s, time.UTC)
}
