package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

type SchedulingGormRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*SchedulingGormRepository)(nil)

func NewSchedulingGormRepository(db *gorm.DB) *SchedulingGormRepository {
	return &SchedulingGormRepository{db: db}
}

// --------------------------------------------------
// Roster
// --------------------------------------------------

func (r *SchedulingGormRepository) ListTechnicians(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role_id = ? AND status = ?", models.RoleTechnician, models.UserStatusActive).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	return users, nil
}

func (r *SchedulingGormRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("technician_not_found")
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// --------------------------------------------------
// Repair requests
// --------------------------------------------------

func (r *SchedulingGormRepository) GetRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	return getRepairRequest(r.db.WithContext(ctx), id)
}

func getRepairRequest(db *gorm.DB, id uint) (*models.RepairRequest, error) {
	var req models.RepairRequest
	if err := db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("repair_request_not_found")
		}
		return nil, fmt.Errorf("get repair request %d: %w", id, err)
	}
	return &req, nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *SchedulingGormRepository) GetAvailability(ctx context.Context, technicianID uint) (*models.Availability, error) {
	var av models.Availability
	err := r.db.WithContext(ctx).
		Where("user_id = ?", technicianID).
		Take(&av).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get availability %d: %w", technicianID, err)
	}
	return &av, nil
}

func (r *SchedulingGormRepository) ListAvailability(ctx context.Context) ([]models.Availability, error) {
	var list []models.Availability
	if err := r.db.WithContext(ctx).
		Order("user_id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return list, nil
}

// --------------------------------------------------
// Assignments
// --------------------------------------------------

func (r *SchedulingGormRepository) ListAssignments(
	ctx context.Context,
	filter domain.AssignmentFilter,
) ([]models.Assignment, error) {

	q := r.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.TechnicianID != 0 {
		q = q.Where("technician_id = ?", filter.TechnicianID)
	}
	if filter.RepairRequestID != 0 {
		q = q.Where("repair_request_id = ?", filter.RepairRequestID)
	}

	var list []models.Assignment
	if err := q.
		Order("assigned_at DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return list, nil
}

// --------------------------------------------------
// Atomic
// --------------------------------------------------

func (r *SchedulingGormRepository) Atomic(ctx context.Context, fn func(tx domain.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&schedulingGormTx{db: tx})
	})
}

type schedulingGormTx struct {
	db *gorm.DB
}

var _ domain.Tx = (*schedulingGormTx)(nil)

func (t *schedulingGormTx) LockRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	return getRepairRequest(t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// LockAvailability locks the technician row first so that technicians
// without an availability row still serialize.
func (t *schedulingGormTx) LockAvailability(ctx context.Context, technicianID uint) (*models.Availability, error) {
	var user models.User
	if err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", technicianID).
		Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("technician_not_found")
		}
		return nil, fmt.Errorf("lock technician %d: %w", technicianID, err)
	}

	var av models.Availability
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", technicianID).
		Take(&av).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock availability %d: %w", technicianID, err)
	}
	return &av, nil
}

func (t *schedulingGormTx) SaveAvailability(ctx context.Context, av *models.Availability) error {
	return saveAvailability(t.db.WithContext(ctx), av)
}

// saveAvailability upserts on the unique user_id.
func saveAvailability(db *gorm.DB, av *models.Availability) error {
	if av.ID != 0 {
		if err := db.Save(av).Error; err != nil {
			return fmt.Errorf("save availability: %w", err)
		}
		return nil
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"date", "start_time", "end_time", "is_available", "updated_at",
		}),
	}).Create(av).Error; err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

func (t *schedulingGormTx) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if err := t.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (t *schedulingGormTx) ListAssignmentsForRequest(
	ctx context.Context,
	repairRequestID uint,
) ([]models.Assignment, error) {

	var list []models.Assignment
	if err := t.db.WithContext(ctx).
		Where("repair_request_id = ?", repairRequestID).
		Order("assigned_at DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list request assignments: %w", err)
	}
	return list, nil
}

func (t *schedulingGormTx) ServiceReportExists(ctx context.Context, assignmentID uint) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.ServiceReport{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count service reports: %w", err)
	}
	return count > 0, nil
}

func (t *schedulingGormTx) CreateServiceReport(ctx context.Context, sr *models.ServiceReport) error {
	if err := t.db.WithContext(ctx).Create(sr).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			return httperr.ErrBusiness("service_report_exists")
		}
		return fmt.Errorf("create service report: %w", err)
	}
	return nil
}
