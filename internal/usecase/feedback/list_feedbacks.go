package feedback

import (
	"context"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/feedback"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

type ListFeedbacks struct {
	repo domain.Repository
}

func NewListFeedbacks(repo domain.Repository) *ListFeedbacks {
	return &ListFeedbacks{repo: repo}
}

func (uc *ListFeedbacks) Execute(ctx context.Context) ([]models.UserFeedback, error) {
	return uc.repo.ListFeedbacks(ctx)
}
