package server

import (
	"net/http"
	"runtime"

	"github.com/aristath/stockfolio/internal/httputil"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "stockfolio",
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	dbStatus := "ok"
	if err := s.db.Conn().Ping(); err != nil {
		dbStatus = "unreachable"
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "running",
		"database": dbStatus,
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	})
}
