package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.filter.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"filter_latency":   s.metrics.Latency(),
		"queue_depth":      s.orchestrator.QueueDepth(),
		"jobs_tracked":     s.orchestrator.JobCount(),
		"handlers_enabled": snap.Set.IDs(),
		"settings_applied": snap.Applied,
	})
}
