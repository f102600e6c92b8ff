package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/cache"
	"github.com/BruksfildServices01/erms-api/internal/config"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/handlers"
	infraRepo "github.com/BruksfildServices01/erms-api/internal/infra/repository"
	"github.com/BruksfildServices01/erms-api/internal/middleware"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/notify"
	"github.com/BruksfildServices01/erms-api/internal/realtime"
	"github.com/BruksfildServices01/erms-api/internal/storage"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
	ucFeedback "github.com/BruksfildServices01/erms-api/internal/usecase/feedback"
	ucScheduling "github.com/BruksfildServices01/erms-api/internal/usecase/scheduling"
)

// Deps are the process-wide singletons built in main. Redis and Store may
// be nil: the availability cache then reads straight from the database and
// profile image uploads are disabled. A nil Sender is built from config.
type Deps struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Redis  *redis.Client
	Hub    *realtime.Hub
	Audit  *audit.Dispatcher
	Store  storage.ObjectStore
	Clock  timezone.Clock
	Limits *middleware.RateLimiter
	Sender notify.Sender
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config

	// ======================================================
	// INFRA
	// ======================================================
	schedulingRepo := infraRepo.NewSchedulingGormRepository(d.DB)
	feedbackRepo := infraRepo.NewFeedbackGormRepository(d.DB)

	var kv cache.KVStore
	if d.Redis != nil {
		kv = cache.NewRedisKVStore(d.Redis)
	}
	availability := cache.NewAvailabilityCache(kv, schedulingRepo, cfg.AvailabilityCacheTTL, d.Log)

	window := cfg.ServiceWindow()
	policy := scheduling.ParseNoRecordPolicy(cfg.NoRecordPolicy)

	// ======================================================
	// USE CASES: SCHEDULING
	// ======================================================
	computeAvailableUC := ucScheduling.NewComputeAvailableTechnicians(availability, policy, d.Log)
	listAvailableUC := ucScheduling.NewListAvailableTechnicians(schedulingRepo, computeAvailableUC)

	assignTechnicianUC := ucScheduling.NewAssignTechnician(
		schedulingRepo,
		availability,
		d.Hub,
		d.Audit,
		d.Clock,
		window,
		d.Log,
	)

	submitReportUC := ucScheduling.NewSubmitServiceReport(
		schedulingRepo,
		availability,
		d.Hub,
		d.Audit,
		d.Clock,
		window,
		d.Log,
	)

	listAssignmentsUC := ucScheduling.NewListAssignments(schedulingRepo)
	getAvailabilityUC := ucScheduling.NewGetAvailability(availability)
	listAvailabilityUC := ucScheduling.NewListAvailability(schedulingRepo)
	updateAvailabilityUC := ucScheduling.NewUpdateAvailability(
		schedulingRepo,
		availability,
		d.Hub,
		d.Audit,
		d.Clock,
		window,
	)

	// ======================================================
	// USE CASES: FEEDBACK
	// ======================================================
	submitFeedbackUC := ucFeedback.NewSubmitFeedback(feedbackRepo, d.Hub, d.Audit)
	listFeedbacksUC := ucFeedback.NewListFeedbacks(feedbackRepo)

	// ======================================================
	// HANDLERS
	// ======================================================
	sender := d.Sender
	if sender == nil {
		sender = notify.New(cfg.NotifyWebhookURL, d.Log)
	}

	authHandler := handlers.NewAuthHandler(d.DB, cfg, d.Hub, d.Audit, d.Clock, sender)
	meHandler := handlers.NewMeHandler(d.DB, d.Audit)
	userHandler := handlers.NewUserHandler(d.DB, d.Store, availability, d.Hub, d.Audit, d.Clock, window)
	skillHandler := handlers.NewSkillHandler(d.DB, d.Audit)
	repairHandler := handlers.NewRepairRequestHandler(d.DB, d.Hub, d.Audit, d.Clock)
	reportHandler := handlers.NewServiceReportHandler(d.DB, submitReportUC)
	feedbackHandler := handlers.NewFeedbackHandler(submitFeedbackUC, listFeedbacksUC)

	schedulingHandler := handlers.NewSchedulingHandler(
		listAvailableUC,
		assignTechnicianUC,
		listAssignmentsUC,
		getAvailabilityUC,
		listAvailabilityUC,
		updateAvailabilityUC,
	)

	auditLogsHandler := handlers.NewAuditLogsHandler(d.DB, timezone.Location(cfg.Timezone))
	realtimeHandler := handlers.NewRealtimeHandler(d.Hub)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Hub)

	limits := d.Limits
	if limits == nil {
		limits = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTechnician)

	// ======================================================
	// PUBLIC
	// ======================================================
	r.GET("/health", healthHandler.Check)
	r.POST("/auth/login", limits.Middleware(), authHandler.Login)
	r.GET("/auth/roles", authHandler.Roles)
	r.POST("/auth/password/forgot", limits.Middleware(), authHandler.ForgotPassword)
	r.POST("/auth/password/reset/me", limits.Middleware(), authHandler.ResetPassword)
	r.POST("/registration/accept", limits.Middleware(), authHandler.AcceptInvite)

	// ======================================================
	// AUTHENTICATED
	// ======================================================
	secured := r.Group("/")
	secured.Use(middleware.AuthMiddleware(cfg))
	{
		secured.POST("/auth/register", admin, authHandler.Register)
		secured.POST("/registration/invite", admin, authHandler.Invite)

		secured.GET("/me", meHandler.GetMe)
		secured.PATCH("/me/password", limits.Middleware(), meHandler.ChangePassword)

		secured.GET("/ws/events", realtimeHandler.Events)

		// ------------------------------
		// USERS
		// ------------------------------
		users := secured.Group("/user/profile")
		{
			users.GET("", admin, userHandler.List)
			users.PUT("/:id", admin, userHandler.Update)
			users.DELETE("/:id", admin, userHandler.Delete)
			users.PUT("/:id/image", userHandler.UploadImage)
		}

		// ------------------------------
		// TASKS: skills, availability, assignments
		// ------------------------------
		tasks := secured.Group("/tasks")
		{
			tasks.GET("/skills", skillHandler.List)
			tasks.POST("/skills", admin, skillHandler.Create)
			tasks.PATCH("/skills/:id", admin, skillHandler.Update)

			tasks.GET("/technician-skills", skillHandler.ListTechnicianSkills)
			tasks.POST("/technician-skills", admin, skillHandler.AssignSkill)
			tasks.DELETE("/technician-skills/:id", admin, skillHandler.RemoveTechnicianSkill)

			tasks.GET("/availability", staff, schedulingHandler.ListAvailability)
			tasks.GET("/availability/:id", staff, schedulingHandler.GetAvailability)
			tasks.PATCH("/availability/:id", admin, schedulingHandler.UpdateAvailability)
			tasks.GET("/available-technicians", admin, schedulingHandler.AvailableTechnicians)

			tasks.POST("/assignments", admin, schedulingHandler.Assign)
			tasks.GET("/assignments", staff, schedulingHandler.ListAssignments)
		}

		// ------------------------------
		// REPAIRS
		// ------------------------------
		repairs := secured.Group("/repairs")
		{
			repairs.POST("/repair-requests", repairHandler.Create)
			repairs.GET("/repair-requests", repairHandler.List)
			repairs.GET("/repair-requests/:id", repairHandler.Get)
			repairs.DELETE("/repair-requests/:id", repairHandler.Delete)

			repairs.POST("/service-reports", staff, reportHandler.Create)
			repairs.GET("/service-reports", reportHandler.List)
			repairs.GET("/service-reports/export", admin, reportHandler.Export)
		}

		// ------------------------------
		// FEEDBACK
		// ------------------------------
		secured.POST("/feedbacks", feedbackHandler.Submit)
		secured.GET("/feedbacks", staff, feedbackHandler.List)

		// ------------------------------
		// AUDIT
		// ------------------------------
		secured.GET("/audit-logs", admin, auditLogsHandler.List)
	}
}
