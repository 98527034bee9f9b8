package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

// handleListJobs returns the job index, newest first
func (s *APIServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	jobs, err := s.dbManager.ListJobs(limit)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list jobs: %v", err), "api")
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*types.DesignJob{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jobs": jobs})
}

// jobDetail is the single-job response: the index record plus the stored
// response document when the job completed
type jobDetail struct {
	*types.DesignJob
	Response json.RawMessage `json:"response,omitempty"`
}

// handleGetJob returns one job with its stored response document
func (s *APIServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID, ok := s.jobIDFromPath(w, r.URL.Path, "")
	if !ok {
		return
	}

	job, err := s.dbManager.GetJob(jobID)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to get job %s: %v", jobID, err), "api")
		s.writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	detail := jobDetail{DesignJob: job}
	respPath := filepath.Join(s.designer.JobsDir(), jobID, "responses", "response.json")
	if data, err := os.ReadFile(respPath); err == nil {
		detail.Response = json.RawMessage(data)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// handleJobLog streams the per-step run log as plain text
func (s *APIServer) handleJobLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID, ok := s.jobIDFromPath(w, r.URL.Path, "/log")
	if !ok {
		return
	}

	logPath := filepath.Join(s.designer.JobsDir(), jobID, "logs", "run.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no run log for job %s", jobID))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(data)
}

// jobIDFromPath extracts and validates the job id segment of the URL.
// Identifiers are dashless UUIDs so anything with path separators or dots
// is rejected before touching the filesystem.
func (s *APIServer) jobIDFromPath(w http.ResponseWriter, path, suffix string) (string, bool) {
	jobID := strings.TrimPrefix(path, "/api/v1/jobs/")
	jobID = strings.TrimSuffix(jobID, suffix)
	jobID = strings.Trim(jobID, "/")
	if jobID == "" || strings.ContainsAny(jobID, "/\\.") {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid job id")
		return "", false
	}
	return jobID, true
}
