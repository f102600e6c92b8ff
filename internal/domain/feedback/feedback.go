package feedback

import (
	"context"

	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

// Rating buckets accepted for every feedback dimension.
const (
	BucketPerfect = "100%"
	BucketHigh    = "90%-99%"
	BucketMedium  = "70%-90%"
	BucketLow     = "<70%"
)

var Buckets = []string{BucketPerfect, BucketHigh, BucketMedium, BucketLow}

func ValidBucket(s string) bool {
	for _, b := range Buckets {
		if s == b {
			return true
		}
	}
	return false
}

func Validate(f *models.UserFeedback) error {
	for _, v := range []string{
		f.Courtesy,
		f.Communication,
		f.Friendliness,
		f.Professionalism,
		f.OverallSatisfaction,
	} {
		if !ValidBucket(v) {
			return httperr.ErrBusiness("invalid_feedback_bucket")
		}
	}
	return nil
}

// CanGiveFeedback allows the requester of the repaired device and admins.
func CanGiveFeedback(sess session.Session, req *models.RepairRequest) error {
	if sess.IsAdmin() {
		return nil
	}
	if req == nil || req.UserID != sess.UserID {
		return httperr.ErrBusiness("forbidden")
	}
	return nil
}

type Repository interface {
	GetServiceReport(ctx context.Context, id uint) (*models.ServiceReport, error)

	GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error)

	// UpsertFeedback replaces any feedback already stored for the report.
	UpsertFeedback(ctx context.Context, f *models.UserFeedback) error

	ListFeedbacks(ctx context.Context) ([]models.UserFeedback, error)
}
