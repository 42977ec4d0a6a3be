package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler tracks process readiness, grounded in the teacher's
// internal/server/health.go SetReady/IsReady staging used during
// graceful shutdown: mark not-ready before draining so a load balancer
// stops routing new traffic while in-flight work finishes.
type HealthHandler struct {
	mu    sync.RWMutex
	ready bool
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{ready: true}
}

func (h *HealthHandler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *HealthHandler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

type healthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *HealthHandler) live(c *gin.Context) {
	c.JSON(http.StatusOK, healthStatus{Status: "ALIVE", Timestamp: time.Now().UTC()})
}

func (h *HealthHandler) readiness(c *gin.Context) {
	if !h.IsReady() {
		c.JSON(http.StatusServiceUnavailable, healthStatus{Status: "DOWN", Timestamp: time.Now().UTC()})
		return
	}
	c.JSON(http.StatusOK, healthStatus{Status: "UP", Timestamp: time.Now().UTC()})
}
