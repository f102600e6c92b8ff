package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	"github.com/BruksfildServices01/erms-api/internal/middleware"
	"github.com/BruksfildServices01/erms-api/internal/session"
)

const dateLayout = "2006-01-02"

// mustSession returns the caller or writes 401.
func mustSession(c *gin.Context) (session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user_not_in_context"})
		return session.Session{}, false
	}
	return sess, true
}

// idParam parses a positive numeric path parameter or writes 400.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_" + name})
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"details": err.Error(),
	})
}

type page struct {
	Page  int
	Limit int
}

func (p page) Offset() int {
	return (p.Page - 1) * p.Limit
}

func readPage(c *gin.Context, limitKey string, defLimit, maxLimit int) page {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if p <= 0 {
		p = 1
	}
	l, _ := strconv.Atoi(c.DefaultQuery(limitKey, strconv.Itoa(defLimit)))
	if l <= 0 || l > maxLimit {
		l = defLimit
	}
	return page{Page: p, Limit: l}
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}

func writeAudit(
	d *audit.Dispatcher,
	sess session.Session,
	action string,
	entity string,
	entityID uint,
	meta any,
) {
	uid := sess.UserID
	id := entityID
	d.Dispatch(audit.Event{
		UserID:   &uid,
		Action:   action,
		Entity:   entity,
		EntityID: &id,
		Metadata: meta,
	})
}
