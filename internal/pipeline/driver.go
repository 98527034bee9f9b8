package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// PipelineRunner drives one job's generation stage inside an already
// normalized workspace. Implementations: Driver (real external model) and
// MockRunner (deterministic stand-in). The returned chain list is the
// resolved list every downstream consumer must use.
type PipelineRunner interface {
	Run(ctx context.Context, ws *Workspace, sm *structure.SequenceMap, sel types.ChainSelection, params types.ModelParams) (chains []string, runtimeMS int64, err error)
}

// Driver invokes the ProteinMPNN helper pipeline as three external steps:
// parse structures, assign fixed/free chains, generate sequences. Each step
// gets its own timeout budget; the first non-zero exit aborts the job.
type Driver struct {
	cm          *utils.ConfigManager
	logger      *utils.LogsManager
	runner      CommandRunner
	pythonBin   string
	mpnnDir     string
	stepTimeout time.Duration
	captureCap  int64
	extraArgs   []string
}

// NewDriver creates a pipeline driver from deployment configuration
func NewDriver(cm *utils.ConfigManager, logger *utils.LogsManager, runner CommandRunner) (*Driver, error) {
	if runner == nil {
		runner = &ExecRunner{}
	}

	extraArgsStr := cm.GetConfigWithDefault("design_extra_args", "")
	var extraArgs []string
	if strings.TrimSpace(extraArgsStr) != "" {
		parsed, err := shlex.Split(extraArgsStr)
		if err != nil {
			return nil, NewConfigError("invalid design_extra_args %q: %v", extraArgsStr, err)
		}
		extraArgs = parsed
	}

	return &Driver{
		cm:          cm,
		logger:      logger,
		runner:      runner,
		pythonBin:   cm.GetConfigWithDefault("python_bin", "python3"),
		mpnnDir:     cm.GetConfigWithDefault("proteinmpnn_dir", "/opt/ProteinMPNN"),
		stepTimeout: time.Duration(cm.GetConfigInt("step_timeout_sec", 600, 1, 86400)) * time.Second,
		captureCap:  cm.GetConfigBytes("output_capture_limit_bytes", 64*1024),
		extraArgs:   extraArgs,
	}, nil
}

// CheckInstallation verifies the external model is present at the configured
// path. Called before a job starts so a bad deployment fails fast.
func (d *Driver) CheckInstallation() error {
	scripts := []string{
		filepath.Join(d.mpnnDir, "helper_scripts", "parse_multiple_chains.py"),
		filepath.Join(d.mpnnDir, "helper_scripts", "assign_fixed_chains.py"),
		filepath.Join(d.mpnnDir, "protein_mpnn_run.py"),
	}
	for _, script := range scripts {
		if err := utils.ValidateRegularFile(script); err != nil {
			return NewConfigError("ProteinMPNN installation not found at %s: %v", d.mpnnDir, err)
		}
	}
	return nil
}

// ModelDir returns the configured ProteinMPNN checkout path
func (d *Driver) ModelDir() string {
	return d.mpnnDir
}

// Run executes parse -> assign -> generate for one workspace.
//
// The returned chain list is always the full set recovered from the parse
// record (sorted seq_chain_* keys): the generator emits composite records
// covering every chain in the complex, fixed chains included, so the output
// mapper must split by the discovered set even when the request designs a
// subset. The selection only steers the assign step.
func (d *Driver) Run(ctx context.Context, ws *Workspace, sm *structure.SequenceMap, sel types.ChainSelection, params types.ModelParams) ([]string, int64, error) {
	if err := d.runParseStep(ctx, ws); err != nil {
		return nil, 0, err
	}

	discovered := inferChainsFromParsedJSONL(ws.ParsedJSONL())
	if len(discovered) == 0 {
		return nil, 0, &ExecutionError{
			Message:    "could not infer chains from parse record",
			Returncode: 1,
			Stderr:     "parsed_pdbs.jsonl did not contain seq_chain_* keys",
		}
	}

	designChains := sel.IDs
	if len(designChains) == 0 {
		designChains = discovered
	}

	if err := d.runAssignStep(ctx, ws, designChains); err != nil {
		return nil, 0, err
	}

	runtimeMS, err := d.runGenerateStep(ctx, ws, params)
	if err != nil {
		return nil, 0, err
	}

	if _, err := renameFirstFastaToResult(ws.SeqsDir, ws.BaseName); err != nil {
		return nil, 0, fmt.Errorf("failed to locate generated sequence file: %w", err)
	}

	return discovered, runtimeMS, nil
}

func (d *Driver) runParseStep(ctx context.Context, ws *Workspace) error {
	argv := []string{
		d.pythonBin,
		filepath.Join(d.mpnnDir, "helper_scripts", "parse_multiple_chains.py"),
		"--input_path", ws.ArtifactsDir,
		"--output_path", ws.ParsedJSONL(),
	}
	_, err := d.runStep(ctx, ws, "parse_multiple_chains", argv)
	return err
}

func (d *Driver) runAssignStep(ctx context.Context, ws *Workspace, chains []string) error {
	argv := []string{
		d.pythonBin,
		filepath.Join(d.mpnnDir, "helper_scripts", "assign_fixed_chains.py"),
		"--input_path", ws.ParsedJSONL(),
		"--output_path", ws.ChainIDJSONL(),
		"--chain_list", strings.Join(chains, " "),
	}
	_, err := d.runStep(ctx, ws, "assign_fixed_chains", argv)
	return err
}

func (d *Driver) runGenerateStep(ctx context.Context, ws *Workspace, params types.ModelParams) (int64, error) {
	argv := []string{
		d.pythonBin,
		filepath.Join(d.mpnnDir, "protein_mpnn_run.py"),
		"--jsonl_path", ws.ParsedJSONL(),
		"--chain_id_jsonl", ws.ChainIDJSONL(),
		"--out_folder", ws.ModelOutputsDir,
		"--num_seq_per_target", strconv.Itoa(params.NumSequences),
		"--sampling_temp", params.SamplingTemp,
		"--batch_size", strconv.Itoa(params.BatchSize),
		"--model_name", params.ModelName,
		"--seed", strconv.Itoa(params.Seed),
	}
	argv = append(argv, d.extraArgs...)

	res, err := d.runStep(ctx, ws, "protein_mpnn_run", argv)
	if err != nil {
		return 0, err
	}
	return res.RuntimeMS, nil
}

// runStep executes one external step, records it in the run log and turns a
// non-zero exit into an ExecutionError. The log entry is written before the
// error propagates so failed jobs always have their diagnostics on disk.
func (d *Driver) runStep(ctx context.Context, ws *Workspace, title string, argv []string) (types.StepResult, error) {
	d.logger.Info(fmt.Sprintf("Job %s running step %s", ws.JobID, title), "pipeline")

	res := d.runner.Run(ctx, argv, d.stepTimeout)

	if err := appendRunLog(ws.LogPath(), title, argv, res); err != nil {
		d.logger.Warn(fmt.Sprintf("Job %s failed to append run log: %v", ws.JobID, err), "pipeline")
	}

	if res.Returncode != 0 {
		d.logger.Error(fmt.Sprintf("Job %s step %s failed with returncode %d", ws.JobID, title, res.Returncode), "pipeline")
		return res, &ExecutionError{
			Message:    fmt.Sprintf("%s failed", title),
			Returncode: res.Returncode,
			Stdout:     truncateOutput(res.Stdout, d.captureCap),
			Stderr:     truncateOutput(res.Stderr, d.captureCap),
		}
	}

	return res, nil
}

// appendRunLog writes one structured entry to the job's append-only run log
func appendRunLog(logPath, title string, argv []string, res types.StepResult) error {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "\n===== %s =====\n", title)
	fmt.Fprintf(&b, "cmd: %s\n", strings.Join(argv, " "))
	fmt.Fprintf(&b, "returncode: %d\n", res.Returncode)
	fmt.Fprintf(&b, "runtime_ms: %d\n", res.RuntimeMS)
	fmt.Fprintf(&b, "\n---- stdout ----\n%s\n", strings.TrimRight(res.Stdout, "\n"))
	fmt.Fprintf(&b, "\n---- stderr ----\n%s\n", strings.TrimRight(res.Stderr, "\n"))

	_, err = f.WriteString(b.String())
	return err
}

// inferChainsFromParsedJSONL recovers chain ids from the first parse record's
// seq_chain_* keys, sorted lexicographically. Empty result when the record
// is missing or malformed.
func inferChainsFromParsedJSONL(parsedPath string) []string {
	data, err := os.ReadFile(parsedPath)
	if err != nil {
		return nil
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return nil
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		return nil
	}

	var chains []string
	for key := range record {
		if cid := strings.TrimPrefix(key, "seq_chain_"); cid != key && cid != "" {
			chains = append(chains, cid)
		}
	}
	sort.Strings(chains)
	return chains
}

// renameFirstFastaToResult renames the first non-canonical sequence file in
// seqsDir to <base>_res.fa. Lexicographic scan, best effort: the generator
// normally emits exactly one file per target.
func renameFirstFastaToResult(seqsDir, base string) (string, error) {
	entries, err := os.ReadDir(seqsDir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(name, ".fa") && !strings.HasSuffix(name, ".fasta") {
			continue
		}
		if strings.HasSuffix(name, "_res.fa") || strings.HasSuffix(name, "_res.fasta") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no sequence files found in %s", seqsDir)
	}
	sort.Strings(names)

	src := filepath.Join(seqsDir, names[0])
	dst := filepath.Join(seqsDir, base+"_res.fa")
	if src != dst {
		_ = os.Remove(dst)
		if err := os.Rename(src, dst); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// truncateOutput bounds captured subprocess output surfaced in error bodies.
// The full text stays in the run log.
func truncateOutput(s string, limit int64) string {
	if limit <= 0 || int64(len(s)) <= limit {
		return s
	}
	return s[:limit] + fmt.Sprintf("\n... [truncated %d bytes]", int64(len(s))-limit)
}
