package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

type SkillHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewSkillHandler(db *gorm.DB, audit *audit.Dispatcher) *SkillHandler {
	return &SkillHandler{db: db, audit: audit}
}

// --------- Requests ---------

type SkillRequest struct {
	Name string `json:"name" binding:"required"`
}

type TechnicianSkillRequest struct {
	UserID  uint `json:"userId" binding:"required"`
	SkillID uint `json:"skillId" binding:"required"`
}

// ======================================================
// SKILLS
// ======================================================

func (h *SkillHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())

	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+query+"%")
	}

	var skills []models.Skill
	if err := q.Order("name ASC").Find(&skills).Error; err != nil {
		httperr.Internal(c, "failed_to_list_skills", "Could not list skills.")
		return
	}

	httpresp.List(c, skills)
}

func (h *SkillHandler) Create(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	skill := models.Skill{Name: strings.TrimSpace(req.Name)}
	if skill.Name == "" {
		httperr.BadRequest(c, "invalid_skill_name", "Skill name is required.")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&skill).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "skill_already_exists", "A skill with this name already exists.")
			return
		}
		httperr.Internal(c, "failed_to_create_skill", "Could not create skill.")
		return
	}

	writeAudit(h.audit, sess, "skill_created", "skill", skill.ID, nil)
	c.JSON(http.StatusCreated, skill)
}

func (h *SkillHandler) Update(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var skill models.Skill
	if err := db.First(&skill, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "skill_not_found", "Skill not found.")
			return
		}
		httperr.Internal(c, "failed_to_get_skill", "Could not load skill.")
		return
	}

	skill.Name = strings.TrimSpace(req.Name)
	if err := db.Save(&skill).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "skill_already_exists", "A skill with this name already exists.")
			return
		}
		httperr.Internal(c, "failed_to_update_skill", "Could not update skill.")
		return
	}

	writeAudit(h.audit, sess, "skill_updated", "skill", skill.ID, nil)
	c.JSON(http.StatusOK, skill)
}

// ======================================================
// TECHNICIAN SKILLS
// ======================================================

func (h *SkillHandler) ListTechnicianSkills(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())

	if userStr := c.Query("userId"); userStr != "" {
		userID, err := strconv.ParseUint(userStr, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_user_id", "userId must be numeric.")
			return
		}
		q = q.Where("user_id = ?", userID)
	}

	var rows []models.TechnicianSkill
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		httperr.Internal(c, "failed_to_list_technician_skills", "Could not list technician skills.")
		return
	}

	httpresp.List(c, rows)
}

func (h *SkillHandler) AssignSkill(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req TechnicianSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		httperr.NotFound(c, "technician_not_found", "Technician not found.")
		return
	}
	if !user.IsTechnician() {
		httperr.Write(c, http.StatusUnprocessableEntity, "not_a_technician", "User is not a technician.")
		return
	}

	var skill models.Skill
	if err := db.First(&skill, req.SkillID).Error; err != nil {
		httperr.NotFound(c, "skill_not_found", "Skill not found.")
		return
	}

	row := models.TechnicianSkill{UserID: user.ID, SkillID: skill.ID}
	if err := db.Create(&row).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "technician_skill_exists", "The technician already has this skill.")
			return
		}
		httperr.Internal(c, "failed_to_assign_skill", "Could not assign skill.")
		return
	}

	writeAudit(h.audit, sess, "technician_skill_added", "technician_skill", row.ID, req)
	c.JSON(http.StatusCreated, row)
}

func (h *SkillHandler) RemoveTechnicianSkill(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	res := h.db.WithContext(c.Request.Context()).Delete(&models.TechnicianSkill{}, id)
	if res.Error != nil {
		httperr.Internal(c, "failed_to_remove_skill", "Could not remove skill.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "technician_skill_not_found", "Technician skill not found.")
		return
	}

	writeAudit(h.audit, sess, "technician_skill_removed", "technician_skill", id, nil)
	c.Status(http.StatusNoContent)
}
