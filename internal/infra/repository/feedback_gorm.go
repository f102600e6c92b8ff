package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/feedback"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

type FeedbackGormRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*FeedbackGormRepository)(nil)

func NewFeedbackGormRepository(db *gorm.DB) *FeedbackGormRepository {
	return &FeedbackGormRepository{db: db}
}

func (r *FeedbackGormRepository) GetServiceReport(ctx context.Context, id uint) (*models.ServiceReport, error) {
	var sr models.ServiceReport
	if err := r.db.WithContext(ctx).First(&sr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("service_report_not_found")
		}
		return nil, fmt.Errorf("get service report %d: %w", id, err)
	}
	return &sr, nil
}

func (r *FeedbackGormRepository) GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	return getRepairRequest(r.db.WithContext(ctx), id)
}

func (r *FeedbackGormRepository) UpsertFeedback(ctx context.Context, f *models.UserFeedback) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_report_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"courtesy",
			"communication",
			"friendliness",
			"professionalism",
			"overall_satisfaction",
			"comments",
			"updated_at",
		}),
	}).Create(f).Error; err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackGormRepository) ListFeedbacks(ctx context.Context) ([]models.UserFeedback, error) {
	var list []models.UserFeedback
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list feedbacks: %w", err)
	}
	return list, nil
}
