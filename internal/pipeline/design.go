package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// JobStore persists the job index. Implemented by database.SQLiteManager;
// tests substitute an in-memory fake.
type JobStore interface {
	CreateJob(job types.DesignJob) error
	CompleteJob(id string, runtimeMS int64) error
	FailJob(id, errMsg string) error
}

// Designer runs the whole design flow for one uploaded structure: ingest,
// chain resolution, generation (real or mock), output mapping, provenance.
// Only the generation stage counts against the admission gate; ingest and
// artifact writing are cheap enough to run unconstrained.
type Designer struct {
	cm     *utils.ConfigManager
	logger *utils.LogsManager
	runner PipelineRunner
	gate   *AdmissionGate
	store  JobStore

	jobsDir  string
	mockMode bool
	modelDir string
	maxSeqs  int
}

// NewDesigner wires a designer from deployment configuration. In mock mode
// no external model installation is needed or checked.
func NewDesigner(cm *utils.ConfigManager, logger *utils.LogsManager, store JobStore) (*Designer, error) {
	d := &Designer{
		cm:       cm,
		logger:   logger,
		store:    store,
		jobsDir:  utils.GetAppPaths("").ResolveDataPath(cm.GetConfigWithDefault("jobs_dir", "runs/jobs")),
		mockMode: cm.GetConfigBool("mock_mode", false),
		maxSeqs:  cm.GetConfigInt("design_max_sequences", 10, 1, 1000),
		gate:     NewAdmissionGate(cm.GetConfigInt("max_concurrent_jobs", 2, 1, 64)),
	}

	if d.mockMode {
		d.runner = NewMockRunner(logger)
	} else {
		driver, err := NewDriver(cm, logger, nil)
		if err != nil {
			return nil, err
		}
		d.runner = driver
		d.modelDir = driver.ModelDir()
	}

	if err := os.MkdirAll(d.jobsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create jobs directory %s: %w", d.jobsDir, err)
	}

	return d, nil
}

// JobsDir returns the root directory holding per-job workspaces
func (d *Designer) JobsDir() string {
	return d.jobsDir
}

// Gate exposes the admission gate for status reporting
func (d *Designer) Gate() *AdmissionGate {
	return d.gate
}

// MockMode reports whether designs come from the deterministic stand-in
func (d *Designer) MockMode() bool {
	return d.mockMode
}

// NewJobID returns a fresh dashless job identifier
func NewJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Design runs one job end to end and returns the response that was also
// written to responses/response.json. The workspace is kept on disk in both
// the success and the failure case so every run stays auditable.
func (d *Designer) Design(ctx context.Context, filename string, data []byte, req types.DesignRequest) (string, *types.DesignResponse, error) {
	jobID := NewJobID()
	resp, err := d.run(ctx, jobID, filename, data, req)
	return jobID, resp, err
}

func (d *Designer) run(ctx context.Context, jobID, filename string, data []byte, req types.DesignRequest) (*types.DesignResponse, error) {
	params, err := d.effectiveParams(req)
	if err != nil {
		return nil, err
	}

	if !d.mockMode {
		if driver, ok := d.runner.(*Driver); ok {
			if err := driver.CheckInstallation(); err != nil {
				return nil, err
			}
		}
	}

	containerImage := strings.TrimSpace(os.Getenv("CONTAINER_IMAGE"))
	if containerImage == "" {
		return nil, NewConfigError("CONTAINER_IMAGE is not set")
	}

	ws, err := NewWorkspace(d.jobsDir, jobID)
	if err != nil {
		return nil, err
	}

	d.logger.Info(fmt.Sprintf("Job %s started for %s (%d bytes)", jobID, filename, len(data)), "pipeline")
	d.recordStart(jobID, filename, data)

	resp, err := d.execute(ctx, ws, data, filename, req, params)
	if err != nil {
		d.recordFailure(jobID, err)
		d.logger.Error(fmt.Sprintf("Job %s failed: %v", jobID, err), "pipeline")
		return nil, err
	}

	d.recordSuccess(jobID, resp.Metadata.RuntimeMS)
	d.logger.Info(fmt.Sprintf("Job %s completed in %dms", jobID, resp.Metadata.RuntimeMS), "pipeline")
	return resp, nil
}

func (d *Designer) execute(ctx context.Context, ws *Workspace, data []byte, filename string, req types.DesignRequest, params types.ModelParams) (*types.DesignResponse, error) {
	sel := req.Chains
	sm, err := ws.IngestStructure(data, filename)
	if err != nil {
		return nil, err
	}
	if err := structure.ValidateChains(sel, sm); err != nil {
		return nil, NewInputError("%v", err)
	}

	if !d.gate.TryAcquire() {
		return nil, &BusyError{MaxConcurrent: d.gate.Capacity()}
	}
	chains, runtimeMS, err := func() ([]string, int64, error) {
		defer d.gate.Release()
		return d.runner.Run(ctx, ws, sm, sel, params)
	}()
	if err != nil {
		return nil, err
	}

	originals, designed, err := MapOutputs(ws, chains, sel)
	if err != nil {
		return nil, err
	}
	for i := range designed {
		if orig, ok := originals[designed[i].Chain]; ok {
			designed[i].DiffPositions = structure.DiffPositions(orig, designed[i].Sequence)
		}
	}

	revision := MockModelRevision
	if !d.mockMode {
		revision, err = ModelRevision(d.modelDir)
		if err != nil {
			return nil, NewConfigError("%v", err)
		}
	}
	versions, err := CollectVersions(revision, strings.TrimSpace(os.Getenv("CONTAINER_IMAGE")), params.ModelName, params.Seed)
	if err != nil {
		return nil, err
	}

	// model_version names the weights; the git revision lives in versions.json
	resp := &types.DesignResponse{
		Metadata: types.DesignMetadata{
			ModelVersion: params.ModelName,
			RuntimeMS:    runtimeMS,
			Seed:         params.Seed,
		},
		DesignedSequences: designed,
		OriginalSequences: originals,
	}

	if err := WriteJSON(ws.ResponsePath(), resp); err != nil {
		return nil, fmt.Errorf("failed to write response: %w", err)
	}
	if err := WriteJSON(ws.VersionsPath(), versions); err != nil {
		return nil, fmt.Errorf("failed to write versions: %w", err)
	}
	if err := WriteManifest(ws, req, params, versions); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	checksumTargets := []string{
		ws.UploadedPath,
		ws.ManifestPath(),
		ws.NormalizedPDB,
		ws.ParsedJSONL(),
		ws.ChainIDJSONL(),
		ws.ResultFasta(),
		ws.ResponsePath(),
		ws.VersionsPath(),
	}
	if err := WriteChecksums(ws.ChecksumsPath(), ws.Root, checksumTargets); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}

	return resp, nil
}

// effectiveParams merges request overrides onto deployment defaults and
// enforces the sequence count bounds
func (d *Designer) effectiveParams(req types.DesignRequest) (types.ModelParams, error) {
	params := types.ModelParams{
		NumSequences: d.cm.GetConfigInt("design_default_sequences", 5, 1, 1000),
		SamplingTemp: d.cm.GetConfigWithDefault("sampling_temp", "0.1"),
		BatchSize:    d.cm.GetConfigInt("batch_size", 1, 1, 64),
		ModelName:    d.cm.GetConfigWithDefault("model_name", "v_48_020"),
		Seed:         d.cm.GetConfigInt("seed", 0, 0, 1<<30),
	}

	if req.NumSequences != nil {
		params.NumSequences = *req.NumSequences
	}
	if params.NumSequences < 1 || params.NumSequences > d.maxSeqs {
		return types.ModelParams{}, NewInputError("num_sequences must be between 1 and %d, got %d", d.maxSeqs, params.NumSequences)
	}
	if req.ModelName != "" {
		params.ModelName = req.ModelName
	}
	if req.SamplingTemp != "" {
		params.SamplingTemp = req.SamplingTemp
	}
	if req.BatchSize != 0 {
		if req.BatchSize < 1 {
			return types.ModelParams{}, NewInputError("batch_size must be positive, got %d", req.BatchSize)
		}
		params.BatchSize = req.BatchSize
	}

	return params, nil
}

func (d *Designer) recordStart(jobID, filename string, data []byte) {
	if d.store == nil {
		return
	}
	job := types.DesignJob{
		ID:       jobID,
		Filename: filename,
		Status:   types.JobStatusRunning,
		InputCID: utils.HashBytesToCID(data),
		InputSHA: utils.Sha256Bytes(data),
	}
	if err := d.store.CreateJob(job); err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to index job %s: %v", jobID, err), "database")
	}
}

func (d *Designer) recordSuccess(jobID string, runtimeMS int64) {
	if d.store == nil {
		return
	}
	if err := d.store.CompleteJob(jobID, runtimeMS); err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to mark job %s completed: %v", jobID, err), "database")
	}
}

func (d *Designer) recordFailure(jobID string, cause error) {
	if d.store == nil {
		return
	}
	if err := d.store.FailJob(jobID, cause.Error()); err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to mark job %s errored: %v", jobID, err), "database")
	}
}
