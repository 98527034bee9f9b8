package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/mpnn-design-labs/design-node/internal/pipeline"
	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
)

// uploads larger than this are rejected before buffering
const maxUploadBytes = 32 << 20

// designPayload is the wire shape of the "payload" form field. Alias keys
// are resolved here so the rest of the pipeline only ever sees the
// canonical request.
type designPayload struct {
	Chains          interface{} `json:"chains"`
	NumSequences    interface{} `json:"num_sequences"`
	NumSeqPerTarget interface{} `json:"num_seq_per_target"`
	NumSequencesAlt interface{} `json:"Num_sequences"`
	ModelName       string      `json:"model_name"`
	SamplingTemp    string      `json:"sampling_temp"`
	BatchSize       int         `json:"batch_size"`
}

// handleDesign accepts a multipart request with a structure file and a JSON
// payload, runs one design job and returns its response
func (s *APIServer) handleDesign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid multipart request: %v", err))
		return
	}

	file, header, err := r.FormFile("structure")
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "missing structure file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to read upload: %v", err))
		return
	}
	if len(data) > maxUploadBytes {
		s.writeError(w, http.StatusUnprocessableEntity, "structure file too large")
		return
	}

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		filename = "input.pdb"
	}

	req, err := parseDesignPayload(r.FormValue("payload"))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	jobID, resp, err := s.designer.Design(r.Context(), filename, data, req)
	if err != nil {
		s.writeDesignError(w, jobID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Job-ID", jobID)
	json.NewEncoder(w).Encode(resp)
}

// parseDesignPayload decodes the payload form field. An empty field is a
// valid request meaning "all chains, all defaults".
func parseDesignPayload(raw string) (types.DesignRequest, error) {
	var req types.DesignRequest
	if raw == "" {
		return req, nil
	}

	var p designPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return req, fmt.Errorf("payload must be valid JSON")
	}

	sel, err := structure.ParseChainSpec(p.Chains)
	if err != nil {
		return req, err
	}
	req.Chains = sel

	count, err := resolveSequenceCount(p.NumSequences, p.NumSeqPerTarget, p.NumSequencesAlt)
	if err != nil {
		return req, err
	}
	if count != nil && *count < 1 {
		return req, fmt.Errorf("num_sequences must be at least 1, got %d", *count)
	}
	req.NumSequences = count

	req.ModelName = p.ModelName
	req.SamplingTemp = p.SamplingTemp
	req.BatchSize = p.BatchSize
	return req, nil
}

// resolveSequenceCount picks the first alias present, nil when all are
// absent. Empty strings count as missing so form-built payloads with blank
// fields fall back to the server default.
func resolveSequenceCount(values ...interface{}) (*int, error) {
	for _, v := range values {
		switch n := v.(type) {
		case nil:
			continue
		case string:
			if n == "" {
				continue
			}
			return nil, fmt.Errorf("num_sequences must be an integer, got %q", n)
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("num_sequences must be an integer, got %v", n)
			}
			count := int(n)
			return &count, nil
		default:
			return nil, fmt.Errorf("num_sequences must be an integer")
		}
	}
	return nil, nil
}

// writeDesignError maps pipeline failures to HTTP statuses
func (s *APIServer) writeDesignError(w http.ResponseWriter, jobID string, err error) {
	if jobID != "" {
		w.Header().Set("X-Job-ID", jobID)
	}

	var inputErr *pipeline.InputError
	var busyErr *pipeline.BusyError
	var execErr *pipeline.ExecutionError

	switch {
	case errors.As(err, &inputErr):
		s.writeError(w, http.StatusUnprocessableEntity, inputErr.Message)
	case errors.As(err, &busyErr):
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusServiceUnavailable, "busy: too many concurrent design jobs")
	case errors.As(err, &execErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":      execErr.Message,
			"returncode": execErr.Returncode,
			"stdout":     execErr.Stdout,
			"stderr":     execErr.Stderr,
		})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
