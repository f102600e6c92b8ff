package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	"github.com/BruksfildServices01/erms-api/internal/imaging"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/storage"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
	"github.com/BruksfildServices01/erms-api/internal/validators"
)

const maxProfileImageBytes = 5 << 20

type UserHandler struct {
	db        *gorm.DB
	store     storage.ObjectStore
	lookup    scheduling.AvailabilityLookup
	publisher scheduling.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
	window    time.Duration
}

// NewUserHandler accepts a nil store; image uploads then answer 503.
func NewUserHandler(
	db *gorm.DB,
	store storage.ObjectStore,
	lookup scheduling.AvailabilityLookup,
	publisher scheduling.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
	window time.Duration,
) *UserHandler {
	return &UserHandler{
		db:        db,
		store:     store,
		lookup:    lookup,
		publisher: publisher,
		audit:     audit,
		now:       now,
		window:    window,
	}
}

// --------- Requests ---------

type UpdateUserRequest struct {
	FirstName   *string `json:"firstName,omitempty"`
	MiddleName  *string `json:"middleName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Profession  *string `json:"profession,omitempty"`
	RoleID      *uint   `json:"roleId,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// --------- Handlers ---------

func (h *UserHandler) List(c *gin.Context) {
	p := readPage(c, "pageSize", 10, 100)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})

	if roleStr := c.Query("roleId"); roleStr != "" {
		roleID, err := strconv.Atoi(roleStr)
		if err != nil {
			httperr.BadRequest(c, "invalid_role_id", "roleId must be numeric.")
			return
		}
		q = q.Where("role_id = ?", roleID)
	}

	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httperr.Internal(c, "failed_to_count_users", "Could not count users.")
		return
	}

	var users []models.User
	if err := q.
		Order("id ASC").
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&users).Error; err != nil {

		httperr.Internal(c, "failed_to_list_users", "Could not list users.")
		return
	}

	// the web client reads totalItems for requesters and totalCount for technicians
	httpresp.Collection(c, "users", users, gin.H{
		"page":       p.Page,
		"pageSize":   p.Limit,
		"totalItems": total,
		"totalCount": total,
	})
}

func (h *UserHandler) Update(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, ok := h.load(c, id)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	wasTechnician := user.IsTechnician()

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.MiddleName != nil {
		user.MiddleName = strings.TrimSpace(*req.MiddleName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			user.DateOfBirth = nil
		} else {
			t, err := parseDate(*req.DateOfBirth, time.UTC)
			if err != nil {
				httperr.BadRequest(c, "invalid_date_of_birth", "Use YYYY-MM-DD.")
				return
			}
			user.DateOfBirth = &t
		}
	}
	if req.Email != nil {
		email := validators.NormalizeEmail(*req.Email)
		if !validators.IsEmailSyntaxValid(email) {
			httperr.BadRequest(c, "invalid_email", "Invalid email address.")
			return
		}
		user.Email = email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Profession != nil {
		user.Profession = *req.Profession
	}
	if req.RoleID != nil {
		if _, known := models.RoleNames[*req.RoleID]; !known {
			httperr.BadRequest(c, "invalid_role_id", "Unknown role.")
			return
		}
		user.RoleID = *req.RoleID
	}
	if req.Status != nil {
		switch *req.Status {
		case models.UserStatusActive, models.UserStatusInactive:
			user.Status = *req.Status
		default:
			httperr.BadRequest(c, "invalid_status", "Status must be active or inactive.")
			return
		}
	}

	// a user promoted to technician gets an available record, unless one
	// survives from an earlier stint
	var seeded *models.Availability
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		if wasTechnician || !user.IsTechnician() {
			return nil
		}
		av := scheduling.MarkAvailable(nil, user.ID, h.now(), h.window)
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(av)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			seeded = av
		}
		return nil
	})
	if err != nil {
		if httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "email_already_exists", "A user with this email already exists.")
			return
		}
		httperr.Internal(c, "failed_to_update_user", "Could not update user.")
		return
	}

	if seeded != nil && h.lookup != nil {
		h.lookup.Store(c.Request.Context(), *seeded)
	}
	h.publisher.Publish(c.Request.Context(),
		scheduling.CollectionAvailability,
		scheduling.CollectionTechniciansAvailable,
	)
	writeAudit(h.audit, sess, "user_updated", "user", user.ID, req)

	c.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
}

func (h *UserHandler) Delete(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if id == sess.UserID {
		httperr.BadRequest(c, "cannot_delete_self", "You cannot delete your own account.")
		return
	}

	user, ok := h.load(c, id)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(user).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_user", "Could not delete user.")
		return
	}

	if user.IsTechnician() {
		h.publisher.Publish(c.Request.Context(), scheduling.CollectionTechniciansAvailable)
	}
	writeAudit(h.audit, sess, "user_deleted", "user", user.ID, nil)

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully."})
}

// UploadImage accepts a multipart "image" field, normalises it to WebP and
// stores it in the object store. Users may only change their own picture
// unless they are administrators.
func (h *UserHandler) UploadImage(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if id != sess.UserID && !sess.IsAdmin() {
		httperr.Forbidden(c, "forbidden", "You are not allowed to perform this action.")
		return
	}
	if h.store == nil {
		httperr.Write(c, http.StatusServiceUnavailable, "storage_not_configured", "Image storage is not configured.")
		return
	}

	user, ok := h.load(c, id)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		httperr.BadRequest(c, "missing_image", "Attach the picture as the image field.")
		return
	}
	if fh.Size > maxProfileImageBytes {
		httperr.BadRequest(c, "image_too_large", "Image must be at most 5MB.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		httperr.BadRequest(c, "invalid_image", "Could not read image.")
		return
	}
	defer f.Close()

	body, err := imaging.NormalizeProfileImage(f, imaging.DefaultMaxSide)
	if err != nil {
		httperr.BadRequest(c, "invalid_image", "Unsupported or corrupt image.")
		return
	}

	key := fmt.Sprintf("profiles/%d/%s.webp", user.ID, uuid.NewString())
	url, err := h.store.Put(c.Request.Context(), key, imaging.ContentType, body)
	if err != nil {
		httperr.Internal(c, "failed_to_store_image", "Could not store image.")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(user).
		Update("profile_image", url).Error; err != nil {

		httperr.Internal(c, "failed_to_update_user", "Could not update user.")
		return
	}

	writeAudit(h.audit, sess, "profile_image_updated", "user", user.ID, gin.H{"key": key})
	c.JSON(http.StatusOK, gin.H{"profileImage": url})
}

func (h *UserHandler) load(c *gin.Context, id uint) (*models.User, bool) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "user_not_found", "User not found.")
			return nil, false
		}
		httperr.Internal(c, "failed_to_get_user", "Could not load user.")
		return nil, false
	}
	return &user, true
}
