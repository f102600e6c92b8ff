package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetServiceReport(ctx context.Context, id uint) (*models.ServiceReport, error) {
	args := m.Called(ctx, id)
	if sr := args.Get(0); sr != nil {
		return sr.(*models.ServiceReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	args := m.Called(ctx, id)
	if req := args.Get(0); req != nil {
		return req.(*models.RepairRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpsertFeedback(ctx context.Context, f *models.UserFeedback) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockRepository) ListFeedbacks(ctx context.Context) ([]models.UserFeedback, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.UserFeedback), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, collections ...string) {
	m.Called(ctx, collections)
}

func newDispatcher() *audit.Dispatcher {
	return audit.NewDispatcher(audit.SinkFunc(func(audit.Event) error { return nil }), zap.NewNop())
}

func validInput() SubmitFeedbackInput {
	return SubmitFeedbackInput{
		ServiceReportID:     8,
		Courtesy:            "100%",
		Communication:       "90%-99%",
		Friendliness:        "100%",
		Professionalism:     "70%-90%",
		OverallSatisfaction: "90%-99%",
		Comments:            "Fast repair",
	}
}

func TestSubmitFeedback_RequesterUpserts(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	ctx := context.Background()

	repo.On("GetServiceReport", ctx, uint(8)).Return(&models.ServiceReport{ID: 8, RepairRequestID: 40}, nil)
	repo.On("GetRepairRequest", ctx, uint(40)).Return(&models.RepairRequest{ID: 40, UserID: 30}, nil)
	repo.On("UpsertFeedback", ctx, mock.MatchedBy(func(f *models.UserFeedback) bool {
		return f.ServiceReportID == 8 && f.UserID == 30 && f.Comments == "Fast repair"
	})).Return(nil)
	pub.On("Publish", ctx, []string{"user-feedbacks"}).Return()

	uc := NewSubmitFeedback(repo, pub, newDispatcher())
	f, err := uc.Execute(ctx, session.New(30, models.RoleUser), validInput())

	require.NoError(t, err)
	assert.Equal(t, "90%-99%", f.OverallSatisfaction)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSubmitFeedback_OtherUserForbidden(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	ctx := context.Background()

	repo.On("GetServiceReport", ctx, uint(8)).Return(&models.ServiceReport{ID: 8, RepairRequestID: 40}, nil)
	repo.On("GetRepairRequest", ctx, uint(40)).Return(&models.RepairRequest{ID: 40, UserID: 30}, nil)

	uc := NewSubmitFeedback(repo, pub, newDispatcher())
	_, err := uc.Execute(ctx, session.New(31, models.RoleUser), validInput())

	assert.True(t, httperr.IsBusiness(err, "forbidden"))
	repo.AssertNotCalled(t, "UpsertFeedback", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSubmitFeedback_InvalidBucket(t *testing.T) {
	repo := new(MockRepository)
	uc := NewSubmitFeedback(repo, new(MockPublisher), newDispatcher())

	in := validInput()
	in.Courtesy = "85%"
	_, err := uc.Execute(context.Background(), session.New(30, models.RoleUser), in)

	assert.True(t, httperr.IsBusiness(err, "invalid_feedback_bucket"))
	repo.AssertNotCalled(t, "GetServiceReport", mock.Anything, mock.Anything)
}

func TestSubmitFeedback_MissingReport(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetServiceReport", ctx, uint(8)).Return(nil, httperr.ErrBusiness("service_report_not_found"))

	uc := NewSubmitFeedback(repo, new(MockPublisher), newDispatcher())
	_, err := uc.Execute(ctx, session.New(30, models.RoleUser), validInput())

	assert.True(t, httperr.IsBusiness(err, "service_report_not_found"))
}

func TestListFeedbacks(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("ListFeedbacks", ctx).Return([]models.UserFeedback{{ID: 1}, {ID: 2}}, nil)

	list, err := NewListFeedbacks(repo).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
