package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// NodeStatusResponse represents node status information
type NodeStatusResponse struct {
	Uptime      int64                  `json:"uptime_seconds"`
	MockMode    bool                   `json:"mock_mode"`
	JobsInUse   int                    `json:"jobs_in_use"`
	JobCapacity int                    `json:"job_capacity"`
	Stats       map[string]interface{} `json:"stats"`
}

// handleNodeStatus returns the current node status
func (s *APIServer) handleNodeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gate := s.designer.Gate()
	response := NodeStatusResponse{
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		MockMode:    s.designer.MockMode(),
		JobsInUse:   gate.InUse(),
		JobCapacity: gate.Capacity(),
		Stats:       s.dbManager.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
