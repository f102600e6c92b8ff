package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestListTechnicians(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "role_id", "status"}).
		AddRow(4, "Abebe", "Kebede", 2, "active").
		AddRow(9, "Sara", "Tesfaye", 2, "active")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE .*role_id.*ORDER BY id ASC`).
		WillReturnRows(rows)

	users, err := repo.ListTechnicians(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, uint(4), users[0].ID)
	assert.Equal(t, "Sara Tesfaye", users[1].FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAvailabilityMissingIsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "availabilities" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_available"}))

	av, err := repo.GetAvailability(context.Background(), 12)
	require.NoError(t, err)
	assert.Nil(t, av)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAvailabilityFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "availabilities" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "start_time", "end_time", "is_available"}).
			AddRow(1, 12, start, start.Add(8*time.Hour), false))

	av, err := repo.GetAvailability(context.Background(), 12)
	require.NoError(t, err)
	require.NotNil(t, av)
	assert.False(t, av.IsAvailable)
	assert.Equal(t, 8*time.Hour, av.EndTime.Sub(av.StartTime))
}

func TestGetRepairRequestNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "repair_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetRepairRequest(context.Background(), 77)
	assert.True(t, httperr.IsBusiness(err, "repair_request_not_found"))
}

func TestListAssignmentsFiltersByTechnician(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "assignments" WHERE technician_id = \$1 ORDER BY assigned_at DESC,id DESC`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "repair_request_id", "technician_id", "assigned_by_id", "assigned_at"}).
			AddRow(2, 30, 4, 1, at))

	list, err := repo.ListAssignments(context.Background(), domain.AssignmentFilter{TechnicianID: 4})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(30), list[0].RepairRequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRollsBackWhenTechnicianBusy(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "users" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(`SELECT \* FROM "availabilities" WHERE user_id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_available"}).AddRow(1, 4, false))
	mock.ExpectRollback()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		av, err := tx.LockAvailability(context.Background(), 4)
		if err != nil {
			return err
		}
		return domain.CanTakeAssignment(av)
	})

	assert.True(t, httperr.IsBusiness(err, "technician_busy"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAvailabilityUnknownTechnician(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "users" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		_, err := tx.LockAvailability(context.Background(), 404)
		return err
	})

	assert.True(t, httperr.IsBusiness(err, "technician_not_found"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicLocksRequestBeforeTechnician(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "repair_requests" WHERE "repair_requests"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(40, 30))
	mock.ExpectQuery(`SELECT \* FROM "assignments" WHERE repair_request_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "repair_request_id", "technician_id"}))
	mock.ExpectQuery(`SELECT .* FROM "users" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(`SELECT \* FROM "availabilities" WHERE user_id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_available"}).AddRow(1, 4, true))
	mock.ExpectCommit()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		ctx := context.Background()
		req, err := tx.LockRepairRequest(ctx, 40)
		if err != nil {
			return err
		}
		if _, err := tx.ListAssignmentsForRequest(ctx, req.ID); err != nil {
			return err
		}
		_, err = tx.LockAvailability(ctx, 4)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRepairRequestDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSchedulingGormRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "repair_requests" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Atomic(context.Background(), func(tx domain.Tx) error {
		_, err := tx.LockRepairRequest(context.Background(), 40)
		return err
	})

	assert.True(t, httperr.IsBusiness(err, "repair_request_not_found"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
