package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/dto"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

var requesterSess = session.New(30, models.RoleUser)

func repairRouter(db *gorm.DB, sess session.Session) *gin.Engine {
	h := NewRepairRequestHandler(db, nopPublisher{}, nil, timezone.FixedClock(fixedNow))
	r := gin.New()
	r.Use(asSession(sess))
	r.POST("/repairs/repair-requests", h.Create)
	r.GET("/repairs/repair-requests", h.List)
	r.DELETE("/repairs/repair-requests/:id", h.Delete)
	return r
}

func TestRepairRequestCreate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO "repair_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	w := doJSON(t, repairRouter(db, requesterSess), http.MethodPost, "/repairs/repair-requests", gin.H{
		"deviceName":         "HP LaserJet",
		"problemDescription": "Paper jam on every print",
		"priority":           "High",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out dto.RepairRequestDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, uint(12), out.ID)
	assert.Equal(t, uint(30), out.UserID)
	assert.True(t, strings.HasPrefix(out.RequestNumber, "REQ-2025-03-10-"), out.RequestNumber)
	assert.Len(t, out.RequestNumber, len("REQ-2025-03-10-")+6)
	assert.Nil(t, out.CurrentAssignee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestCreate_InvalidPriority(t *testing.T) {
	db, _ := newMockDB(t)

	w := doJSON(t, repairRouter(db, requesterSess), http.MethodPost, "/repairs/repair-requests", gin.H{
		"deviceName":         "HP LaserJet",
		"problemDescription": "Paper jam",
		"priority":           "Urgent",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_priority")
}

func TestRepairRequestList_CarriesCurrentAssignee(t *testing.T) {
	db, mock := newMockDB(t)
	t0 := fixedNow.Add(-3 * time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "repair_requests" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_number", "user_id", "device_name", "priority"}).
			AddRow(10, "REQ-2025-03-10-AAAAAA", 30, "Projector", "High").
			AddRow(11, "REQ-2025-03-10-BBBBBB", 30, "Laptop", "Low"))
	mock.ExpectQuery(`SELECT \* FROM "assignments" WHERE repair_request_id IN`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "repair_request_id", "technician_id", "assigned_at"}).
			AddRow(1, 10, 4, t0).
			AddRow(2, 10, 5, t0.Add(time.Hour)))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id IN`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).
			AddRow(5, "Sara", "Tesfaye"))

	w := doJSON(t, repairRouter(db, requesterSess), http.MethodGet, "/repairs/repair-requests?sort=priority&order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			RepairRequests []dto.RepairRequestDTO `json:"repairRequests"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	rows := resp.Data.RepairRequests
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].CurrentAssignee)
	assert.Equal(t, uint(5), rows[0].CurrentAssignee.TechnicianID)
	assert.Equal(t, uint(2), rows[0].CurrentAssignee.AssignmentID)
	assert.Equal(t, "Sara Tesfaye", rows[0].CurrentAssignee.Name)
	assert.Nil(t, rows[1].CurrentAssignee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestList_RejectsUnknownSort(t *testing.T) {
	db, _ := newMockDB(t)

	w := doJSON(t, repairRouter(db, requesterSess), http.MethodGet, "/repairs/repair-requests?sort=password", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRepairRequestDelete_OnlyOwnerOrAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "repair_requests" WHERE "repair_requests"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(10, 31))

	w := doJSON(t, repairRouter(db, requesterSess), http.MethodDelete, "/repairs/repair-requests/10", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
