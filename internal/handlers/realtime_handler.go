package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/erms-api/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Events upgrades to a WebSocket that streams refresh events.
func (h *RealtimeHandler) Events(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	realtime.ServeWS(h.hub, c.Writer, c.Request, sess.UserID)
}

type HealthHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewHealthHandler(db *gorm.DB, hub *realtime.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

func (h *HealthHandler) Check(c *gin.Context) {
	code, status, dbState := http.StatusOK, "ok", "ok"

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		code, status, dbState = http.StatusServiceUnavailable, "degraded", "unreachable"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbState,
		"wsClients": h.hub.ClientCount(),
	})
}
