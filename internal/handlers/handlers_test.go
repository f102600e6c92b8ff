package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/cache"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/middleware"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
	ucScheduling "github.com/BruksfildServices01/erms-api/internal/usecase/scheduling"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// ======================================================
// MOCKS
// ======================================================

type MockRepository struct{ mock.Mock }

func (m *MockRepository) ListTechnicians(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockRepository) GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.RepairRequest)
	return r, args.Error(1)
}

func (m *MockRepository) GetAvailability(ctx context.Context, technicianID uint) (*models.Availability, error) {
	args := m.Called(ctx, technicianID)
	av, _ := args.Get(0).(*models.Availability)
	return av, args.Error(1)
}

func (m *MockRepository) ListAvailability(ctx context.Context) ([]models.Availability, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Availability), args.Error(1)
}

func (m *MockRepository) ListAssignments(ctx context.Context, f scheduling.AssignmentFilter) ([]models.Assignment, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.Assignment), args.Error(1)
}

// Atomic runs fn against the mocked transaction.
func (m *MockRepository) Atomic(ctx context.Context, fn func(tx scheduling.Tx) error) error {
	args := m.Called(ctx)
	return fn(args.Get(0).(scheduling.Tx))
}

type MockTx struct{ mock.Mock }

func (m *MockTx) LockRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	args := m.Called(ctx, id)
	req, _ := args.Get(0).(*models.RepairRequest)
	return req, args.Error(1)
}

func (m *MockTx) LockAvailability(ctx context.Context, technicianID uint) (*models.Availability, error) {
	args := m.Called(ctx, technicianID)
	av, _ := args.Get(0).(*models.Availability)
	return av, args.Error(1)
}

func (m *MockTx) SaveAvailability(ctx context.Context, av *models.Availability) error {
	return m.Called(ctx, av).Error(0)
}

func (m *MockTx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	args := m.Called(ctx, a)
	a.ID = 99
	return args.Error(0)
}

func (m *MockTx) ListAssignmentsForRequest(ctx context.Context, id uint) ([]models.Assignment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]models.Assignment), args.Error(1)
}

func (m *MockTx) ServiceReportExists(ctx context.Context, assignmentID uint) (bool, error) {
	args := m.Called(ctx, assignmentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTx) CreateServiceReport(ctx context.Context, r *models.ServiceReport) error {
	return m.Called(ctx, r).Error(0)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...string) {}

// ======================================================
// HELPERS
// ======================================================

func asSession(sess session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, sess.UserID)
		c.Set(middleware.ContextUserRole, sess.RoleID)
		c.Set(middleware.ContextSession, sess)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type schedulingFixture struct {
	repo    *MockRepository
	tx      *MockTx
	handler *SchedulingHandler
}

func newSchedulingFixture() *schedulingFixture {
	repo := &MockRepository{}
	tx := &MockTx{}
	log := zap.NewNop()
	lookup := cache.NewAvailabilityCache(nil, repo, time.Minute, log)
	clock := timezone.FixedClock(fixedNow)
	window := scheduling.DefaultServiceWindow

	compute := ucScheduling.NewComputeAvailableTechnicians(lookup, scheduling.NoRecordExclude, log)

	h := NewSchedulingHandler(
		ucScheduling.NewListAvailableTechnicians(repo, compute),
		ucScheduling.NewAssignTechnician(repo, lookup, nopPublisher{}, nil, clock, window, log),
		ucScheduling.NewListAssignments(repo),
		ucScheduling.NewGetAvailability(lookup),
		ucScheduling.NewListAvailability(repo),
		ucScheduling.NewUpdateAvailability(repo, lookup, nopPublisher{}, nil, clock, window),
	)
	return &schedulingFixture{repo: repo, tx: tx, handler: h}
}

func (f *schedulingFixture) router(sess session.Session) *gin.Engine {
	r := gin.New()
	r.Use(asSession(sess))
	r.GET("/tasks/available-technicians", f.handler.AvailableTechnicians)
	r.POST("/tasks/assignments", f.handler.Assign)
	r.GET("/tasks/assignments", f.handler.ListAssignments)
	r.GET("/tasks/availability/:id", f.handler.GetAvailability)
	r.PATCH("/tasks/availability/:id", f.handler.UpdateAvailability)
	return r
}

func technician(id uint, first, last string) models.User {
	return models.User{ID: id, FirstName: first, LastName: last, RoleID: models.RoleTechnician, Status: models.UserStatusActive}
}
