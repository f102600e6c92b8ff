package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/authtoken"
	"github.com/BruksfildServices01/erms-api/internal/config"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/notify"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
	"github.com/BruksfildServices01/erms-api/internal/validators"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	db        *gorm.DB
	config    *config.Config
	publisher scheduling.Publisher
	audit     *audit.Dispatcher
	now       timezone.Clock
	sender    notify.Sender

	// emailCheck verifies the address domain; replaced in tests.
	emailCheck func(string) bool
}

func NewAuthHandler(
	db *gorm.DB,
	cfg *config.Config,
	publisher scheduling.Publisher,
	audit *audit.Dispatcher,
	now timezone.Clock,
	sender notify.Sender,
) *AuthHandler {
	return &AuthHandler{
		db:         db,
		config:     cfg,
		publisher:  publisher,
		audit:      audit,
		now:        now,
		sender:     sender,
		emailCheck: validators.IsEmailDomainValid,
	}
}

// --------- Requests ---------

// AccountFields is the profile an account is created with, either by an
// administrator or by the invitee accepting an invitation.
type AccountFields struct {
	FirstName   string `json:"firstName" binding:"required"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName" binding:"required"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"`
	Phone       string `json:"phone"`
	Profession  string `json:"profession"`
	Password    string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	AccountFields
	Email  string `json:"email" binding:"required,email"`
	RoleID uint   `json:"roleId" binding:"required,min=1,max=3"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest may omit Token when it is sent as ?token= or as a
// bearer header.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type InviteRequest struct {
	Email  string `json:"email" binding:"required,email"`
	RoleID uint   `json:"roleId" binding:"required,min=1,max=3"`
}

type AcceptInviteRequest struct {
	AccountFields
	Token string `json:"token" binding:"required"`
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"firstName":    u.FirstName,
		"middleName":   u.MiddleName,
		"lastName":     u.LastName,
		"email":        u.Email,
		"phone":        u.Phone,
		"profession":   u.Profession,
		"profileImage": u.ProfileImage,
		"roleId":       u.RoleID,
		"role":         models.RoleNames[u.RoleID],
		"status":       u.Status,
	}
}

// --------- Handlers ---------

// Register is used by administrators to create accounts.
func (h *AuthHandler) Register(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	email := validators.NormalizeEmail(req.Email)
	if h.emailCheck != nil && !h.emailCheck(email) {
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not look valid.")
		return
	}

	user, ok := h.buildUser(c, req.AccountFields, email, req.RoleID)
	if !ok {
		return
	}
	if !h.createUser(c, user) {
		return
	}

	writeAudit(h.audit, sess, "user_registered", "user", user.ID, gin.H{"roleId": user.RoleID})

	c.JSON(http.StatusCreated, gin.H{
		"user":    userPayload(user),
		"message": "User registered successfully.",
	})
}

// buildUser hashes the password and maps the profile. It writes the error
// response itself.
func (h *AuthHandler) buildUser(c *gin.Context, f AccountFields, email string, roleID uint) (*models.User, bool) {
	var dob *time.Time
	if f.DateOfBirth != "" {
		t, err := parseDate(f.DateOfBirth, time.UTC)
		if err != nil {
			httperr.BadRequest(c, "invalid_date_of_birth", "Use YYYY-MM-DD.")
			return nil, false
		}
		dob = &t
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Could not hash password.")
		return nil, false
	}

	return &models.User{
		FirstName:    strings.TrimSpace(f.FirstName),
		MiddleName:   strings.TrimSpace(f.MiddleName),
		LastName:     strings.TrimSpace(f.LastName),
		Gender:       f.Gender,
		DateOfBirth:  dob,
		Email:        email,
		Phone:        f.Phone,
		Profession:   f.Profession,
		PasswordHash: string(hashed),
		RoleID:       roleID,
		Status:       models.UserStatusActive,
	}, true
}

// createUser inserts the user. Technicians get an available record so they
// are assignable straight away.
func (h *AuthHandler) createUser(c *gin.Context, user *models.User) bool {
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if !user.IsTechnician() {
			return nil
		}
		av := scheduling.MarkAvailable(nil, user.ID, h.now(), h.config.ServiceWindow())
		return tx.Create(av).Error
	})
	if err != nil {
		if httperr.IsUniqueViolation(err) {
			httperr.Conflict(c, "email_already_exists", "A user with this email already exists.")
			return false
		}
		httperr.Internal(c, "failed_to_create_user", "Could not create user.")
		return false
	}

	if user.IsTechnician() {
		h.publisher.Publish(c.Request.Context(),
			scheduling.CollectionAvailability,
			scheduling.CollectionTechniciansAvailable,
		)
	}
	return true
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	email := validators.NormalizeEmail(req.Email)

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", email).
		First(&user).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
			return
		}
		httperr.Internal(c, "internal_error", "Internal error.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
		return
	}

	if !user.IsActive() {
		httperr.Forbidden(c, "account_inactive", "This account is inactive.")
		return
	}

	token, err := h.generateToken(&user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not issue token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  userPayload(&user),
		"token": token,
	})
}

func (h *AuthHandler) Roles(c *gin.Context) {
	roles := make([]gin.H, 0, len(models.RoleNames))
	ids := make([]int, 0, len(models.RoleNames))
	for id := range models.RoleNames {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		roles = append(roles, gin.H{"id": id, "name": models.RoleNames[uint(id)]})
	}
	c.JSON(http.StatusOK, roles)
}

// ======================================================
// PASSWORD RESET
// ======================================================

const forgotPasswordMessage = "If the address belongs to an active account, a reset link has been sent."

// ForgotPassword answers the same way whether or not the address is known.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := validators.NormalizeEmail(req.Email)

	var user models.User
	err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		httperr.Internal(c, "internal_error", "Internal error.")
		return
	case user.IsActive():
		if err := h.sendResetLink(ctx, &user); err != nil {
			_ = c.Error(err)
			break
		}
		writeAudit(h.audit, session.New(user.ID, user.RoleID), "password_reset_requested", "user", user.ID, nil)
	}

	c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
}

func (h *AuthHandler) sendResetLink(ctx context.Context, user *models.User) error {
	ttl := h.config.PasswordResetTTL
	token, err := authtoken.Issue(h.config.JWTSecret, authtoken.ResetClaims(user.ID, user.PasswordHash), h.now(), ttl)
	if err != nil {
		return err
	}
	return h.sender.Send(ctx, notify.Message{
		To:      user.Email,
		Subject: "Reset your ERMS password",
		Body: fmt.Sprintf("Hello %s,\n\nUse this link within %s to choose a new password:\n\n%s\n",
			user.FirstName, ttl, h.link("/reset-password", token)),
	})
}

// ResetPassword sets a new password from a reset token. The update is
// conditional on the hash the token was issued against, so a token works
// once.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		httperr.BadRequest(c, "password_mismatch", "Passwords do not match.")
		return
	}

	raw := resetToken(c, req.Token)
	if raw == "" {
		httperr.Unauthorized(c, "missing_reset_token", "Reset token is required.")
		return
	}
	claims, err := authtoken.Parse(h.config.JWTSecret, raw, authtoken.PurposeReset, h.now())
	if err != nil {
		invalidResetToken(c)
		return
	}
	userID, ok := claims.UserID()
	if !ok {
		invalidResetToken(c)
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			invalidResetToken(c)
			return
		}
		httperr.Internal(c, "internal_error", "Internal error.")
		return
	}
	if !user.IsActive() || authtoken.Fingerprint(user.PasswordHash) != claims.Fingerprint {
		invalidResetToken(c)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Could not hash password.")
		return
	}

	res := db.Model(&models.User{}).
		Where("id = ? AND password_hash = ?", user.ID, user.PasswordHash).
		Update("password_hash", string(hashed))
	if res.Error != nil {
		httperr.Internal(c, "failed_to_update_password", "Could not update password.")
		return
	}
	if res.RowsAffected == 0 {
		invalidResetToken(c)
		return
	}

	writeAudit(h.audit, session.New(user.ID, user.RoleID), "password_reset", "user", user.ID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset."})
}

func invalidResetToken(c *gin.Context) {
	httperr.Unauthorized(c, "invalid_reset_token", "The reset link is invalid or has expired.")
}

// resetToken reads the token from the body, the query or a bearer header.
func resetToken(c *gin.Context, body string) string {
	if body != "" {
		return body
	}
	if q := c.Query("token"); q != "" {
		return q
	}
	const prefix = "Bearer "
	if h := c.GetHeader("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// ======================================================
// INVITATIONS
// ======================================================

// Invite emails a signed invitation. No row is written until it is accepted.
func (h *AuthHandler) Invite(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := validators.NormalizeEmail(req.Email)
	if h.emailCheck != nil && !h.emailCheck(email) {
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not look valid.")
		return
	}

	// soft deleted accounts still hold the address
	var n int64
	if err := h.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("email = ?", email).Count(&n).Error; err != nil {
		httperr.Internal(c, "internal_error", "Internal error.")
		return
	}
	if n > 0 {
		httperr.Conflict(c, "email_already_exists", "A user with this email already exists.")
		return
	}

	ttl := h.config.InviteTTL
	now := h.now()
	token, err := authtoken.Issue(h.config.JWTSecret, authtoken.InviteClaims(email, req.RoleID), now, ttl)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not issue token.")
		return
	}

	msg := notify.Message{
		To:      email,
		Subject: "You have been invited to ERMS",
		Body: fmt.Sprintf("You have been invited to join ERMS as %s. Complete your account within %s:\n\n%s\n",
			models.RoleNames[req.RoleID], ttl, h.link("/accept-invite", token)),
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		_ = c.Error(err)
		httperr.Write(c, http.StatusBadGateway, "invitation_not_sent", "Could not deliver the invitation.")
		return
	}

	writeAudit(h.audit, sess, "user_invited", "invitation", 0, gin.H{"email": email, "roleId": req.RoleID})
	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Invitation sent.",
		"email":     email,
		"expiresAt": now.Add(ttl),
	})
}

// AcceptInvite creates the invited account and signs the invitee in. The
// address and role come from the token, never from the body.
func (h *AuthHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	claims, err := authtoken.Parse(h.config.JWTSecret, req.Token, authtoken.PurposeInvite, h.now())
	if err != nil || claims.Email == "" || models.RoleNames[claims.RoleID] == "" {
		httperr.Unauthorized(c, "invalid_invitation", "The invitation is invalid or has expired.")
		return
	}

	user, ok := h.buildUser(c, req.AccountFields, claims.Email, claims.RoleID)
	if !ok {
		return
	}
	if !h.createUser(c, user) {
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not issue token.")
		return
	}

	writeAudit(h.audit, session.New(user.ID, user.RoleID), "invitation_accepted", "user", user.ID,
		gin.H{"roleId": user.RoleID})

	c.JSON(http.StatusCreated, gin.H{
		"user":  userPayload(user),
		"token": token,
	})
}

func (h *AuthHandler) link(path, token string) string {
	return strings.TrimRight(h.config.AppURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// --------- JWT ---------

func (h *AuthHandler) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.RoleID,
		"exp":  now.Add(tokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}
