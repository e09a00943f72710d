package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc probes one dependency. Readyz aggregates them.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	probes map[string]PingFunc
}

func NewHealthHandler(probes map[string]PingFunc) *HealthHandler {
	return &HealthHandler{probes: probes}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)

	defer cancel()

	checks := gin.H{}
	ready := true

	for name, ping := range h.probes {
		if err := ping(cctx); err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"

	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	ctx.JSON(status, gin.H{"status": state, "checks": checks})
}
