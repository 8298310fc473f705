package httpapi

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

type healthResponse struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	Version           string    `json:"version"`
	Database          string    `json:"database"`
	MemoryUsedPercent float64   `json:"memoryUsedPercent"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Database:  "ok",
	}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.WithError(err).Warn("health: database ping failed")
			resp.Database = "error"
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.MemoryUsedPercent = math.Round(vm.UsedPercent*10) / 10
	}
	h.writeJSON(w, http.StatusOK, resp)
}
