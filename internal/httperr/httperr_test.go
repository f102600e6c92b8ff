package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIsBusinessWrapped(t *testing.T) {
	err := fmt.Errorf("assign: %w", ErrBusiness("technician_busy"))

	assert.True(t, IsBusiness(err, "technician_busy"))
	assert.False(t, IsBusiness(err, "forbidden"))

	code, ok := BusinessCode(err)
	assert.True(t, ok)
	assert.Equal(t, "technician_busy", code)

	_, ok = BusinessCode(errors.New("boom"))
	assert.False(t, ok)
}

func TestFromBusinessStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrBusiness("technician_busy"), http.StatusConflict, "technician_busy"},
		{ErrBusiness("repair_request_not_found"), http.StatusNotFound, "repair_request_not_found"},
		{ErrBusiness("not_current_assignee"), http.StatusForbidden, "not_current_assignee"},
		{ErrBusiness("something_else"), http.StatusBadRequest, "something_else"},
		{errors.New("db down"), http.StatusInternalServerError, "fallback"},
		{&pgconn.PgError{Code: "23505"}, http.StatusConflict, "duplicate_entry"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		FromBusiness(c, tc.err, "fallback")

		require.Equal(t, tc.status, w.Code)
		var body HTTPError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("x")))
}
