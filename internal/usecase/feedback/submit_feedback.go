package feedback

import (
	"context"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	domain "github.com/BruksfildServices01/erms-api/internal/domain/feedback"
	scheduling "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

type SubmitFeedbackInput struct {
	ServiceReportID     uint
	Courtesy            string
	Communication       string
	Friendliness        string
	Professionalism     string
	OverallSatisfaction string
	Comments            string
}

type SubmitFeedback struct {
	repo      domain.Repository
	publisher scheduling.Publisher
	audit     *audit.Dispatcher
}

func NewSubmitFeedback(
	repo domain.Repository,
	publisher scheduling.Publisher,
	audit *audit.Dispatcher,
) *SubmitFeedback {
	return &SubmitFeedback{
		repo:      repo,
		publisher: publisher,
		audit:     audit,
	}
}

// Execute creates the feedback for a service report or replaces the one
// already stored.
func (uc *SubmitFeedback) Execute(
	ctx context.Context,
	sess session.Session,
	in SubmitFeedbackInput,
) (*models.UserFeedback, error) {

	f := &models.UserFeedback{
		ServiceReportID:     in.ServiceReportID,
		UserID:              sess.UserID,
		Courtesy:            in.Courtesy,
		Communication:       in.Communication,
		Friendliness:        in.Friendliness,
		Professionalism:     in.Professionalism,
		OverallSatisfaction: in.OverallSatisfaction,
		Comments:            in.Comments,
	}
	if err := domain.Validate(f); err != nil {
		return nil, err
	}

	report, err := uc.repo.GetServiceReport(ctx, in.ServiceReportID)
	if err != nil {
		return nil, err
	}
	req, err := uc.repo.GetRepairRequest(ctx, report.RepairRequestID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanGiveFeedback(sess, req); err != nil {
		return nil, err
	}

	if err := uc.repo.UpsertFeedback(ctx, f); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, scheduling.CollectionUserFeedbacks)

	uc.audit.Dispatch(audit.Event{
		UserID:   &sess.UserID,
		Action:   "feedback_submitted",
		Entity:   "user_feedback",
		EntityID: &f.ID,
		Metadata: map[string]any{"service_report_id": in.ServiceReportID},
	})

	return f, nil
}
