package types

// Job status constants
const (
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusErrored   = "ERRORED"
)

// DesignJob is the persisted index entry for one run. The artifact tree
// under the job root is the source of truth; this record exists so jobs can
// be listed and pruned without walking the filesystem.
type DesignJob struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	InputCID  string `json:"input_cid"`
	InputSHA  string `json:"input_sha256"`
	RuntimeMS int64  `json:"runtime_ms"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ChainSelection is the resolved form of the request's chain field.
// Empty IDs means "all chains discovered in the structure"; the raw JSON
// shapes ("A", ["A","B"], "ALL", empty) never leave the input boundary.
type ChainSelection struct {
	IDs []string `json:"ids"`
}

// Explicit reports whether the caller named a concrete chain subset.
func (cs ChainSelection) Explicit() bool {
	return len(cs.IDs) > 0
}

// ModelParams are the effective generation parameters for one job, after
// merging request overrides onto deployment defaults.
type ModelParams struct {
	NumSequences int    `json:"num_seq_per_target"`
	SamplingTemp string `json:"sampling_temp"`
	BatchSize    int    `json:"batch_size"`
	ModelName    string `json:"model_name"`
	Seed         int    `json:"seed"`
}

// DesignRequest is the canonical request shape the pipeline operates on.
// Absent optional fields mean "use the deployment default". NumSequences is
// a pointer so a request that explicitly asks for zero sequences stays
// distinguishable from one that omitted the field and fails validation
// instead of silently picking up the default.
type DesignRequest struct {
	Chains       ChainSelection `json:"chains"`
	NumSequences *int           `json:"num_sequences,omitempty"`
	ModelName    string         `json:"model_name,omitempty"`
	SamplingTemp string         `json:"sampling_temp,omitempty"`
	BatchSize    int            `json:"batch_size,omitempty"`
}

// DesignedSequence is one candidate sequence for one chain. Rank is the
// 1-based generation index; chains split out of the same composite record
// share a rank.
type DesignedSequence struct {
	Chain         string `json:"chain"`
	Rank          int    `json:"rank"`
	Sequence      string `json:"sequence"`
	DiffPositions []int  `json:"diff_positions,omitempty"`
}

// DesignMetadata describes how a response was produced
type DesignMetadata struct {
	ModelVersion string `json:"model_version"`
	RuntimeMS    int64  `json:"runtime_ms"`
	Seed         int    `json:"seed"`
}

// DesignResponse is the typed API response; responses/response.json under
// the job root mirrors it byte for byte.
type DesignResponse struct {
	Metadata          DesignMetadata     `json:"metadata"`
	DesignedSequences []DesignedSequence `json:"designed_sequences"`
	OriginalSequences map[string]string  `json:"original_sequences"`
}

// StepResult captures one external pipeline step invocation
type StepResult struct {
	Returncode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	RuntimeMS  int64  `json:"runtime_ms"`
}
