package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// Workspace is the exclusively-owned directory tree of one design job.
//
//	<jobs_dir>/<job_id>/
//	  inputs/            uploaded file + manifest.json
//	  artifacts/         <base>.pdb, parsed_pdbs.jsonl, chain_ids.jsonl
//	  logs/              run.log
//	  model_outputs/     seqs/<base>_res.fa
//	  formatted_outputs/
//	  responses/         response.json
//	  metadata/          checksums.sha256, versions.json
type Workspace struct {
	JobID           string
	Root            string
	InputsDir       string
	ArtifactsDir    string
	LogsDir         string
	ModelOutputsDir string
	SeqsDir         string
	FormattedDir    string
	ResponsesDir    string
	MetadataDir     string

	// Set by IngestStructure
	UploadedPath  string
	NormalizedPDB string
	BaseName      string
}

// NewWorkspace creates the fixed directory layout for one job
func NewWorkspace(jobsDir, jobID string) (*Workspace, error) {
	root := filepath.Join(jobsDir, jobID)

	ws := &Workspace{
		JobID:           jobID,
		Root:            root,
		InputsDir:       filepath.Join(root, "inputs"),
		ArtifactsDir:    filepath.Join(root, "artifacts"),
		LogsDir:         filepath.Join(root, "logs"),
		ModelOutputsDir: filepath.Join(root, "model_outputs"),
		SeqsDir:         filepath.Join(root, "model_outputs", "seqs"),
		FormattedDir:    filepath.Join(root, "formatted_outputs"),
		ResponsesDir:    filepath.Join(root, "responses"),
		MetadataDir:     filepath.Join(root, "metadata"),
	}

	for _, dir := range []string{
		ws.InputsDir, ws.ArtifactsDir, ws.LogsDir, ws.SeqsDir,
		ws.FormattedDir, ws.ResponsesDir, ws.MetadataDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	return ws, nil
}

// LogPath returns the append-only per-step run log
func (ws *Workspace) LogPath() string {
	return filepath.Join(ws.LogsDir, "run.log")
}

// ParsedJSONL returns the structured per-chain parse record path
func (ws *Workspace) ParsedJSONL() string {
	return filepath.Join(ws.ArtifactsDir, "parsed_pdbs.jsonl")
}

// ChainIDJSONL returns the fixed/free chain assignment record path
func (ws *Workspace) ChainIDJSONL() string {
	return filepath.Join(ws.ArtifactsDir, "chain_ids.jsonl")
}

// ResultFasta returns the canonical sequence container path
func (ws *Workspace) ResultFasta() string {
	return filepath.Join(ws.SeqsDir, ws.BaseName+"_res.fa")
}

// ResponsePath returns the persisted API response artifact path
func (ws *Workspace) ResponsePath() string {
	return filepath.Join(ws.ResponsesDir, "response.json")
}

// ManifestPath returns the input manifest path
func (ws *Workspace) ManifestPath() string {
	return filepath.Join(ws.InputsDir, "manifest.json")
}

// VersionsPath returns the provenance versions record path
func (ws *Workspace) VersionsPath() string {
	return filepath.Join(ws.MetadataDir, "versions.json")
}

// ChecksumsPath returns the audit checksum manifest path
func (ws *Workspace) ChecksumsPath() string {
	return filepath.Join(ws.MetadataDir, "checksums.sha256")
}

// IngestStructure normalizes the uploaded structure into the workspace.
//
// The raw bytes land at inputs/<original filename> untouched. A canonical
// PDB rendition is written to artifacts/<base>.pdb; that file is the only
// structure later pipeline steps may read. The returned SequenceMap holds
// the per-chain sequences discovered in the normalized structure.
func (ws *Workspace) IngestStructure(data []byte, filename string) (*structure.SequenceMap, error) {
	if len(data) == 0 {
		return nil, NewInputError("uploaded structure file is empty")
	}

	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		filename = "input.pdb"
	}

	ws.UploadedPath = filepath.Join(ws.InputsDir, filename)
	if err := os.WriteFile(ws.UploadedPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write uploaded structure: %w", err)
	}

	lower := strings.ToLower(filename)
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = "input"
	}
	ws.BaseName = base
	ws.NormalizedPDB = filepath.Join(ws.ArtifactsDir, base+".pdb")

	var pdbText string
	switch {
	case strings.HasSuffix(lower, ".pdb"):
		pdbText = string(data)
	case strings.HasSuffix(lower, ".cif"), strings.HasSuffix(lower, ".mmcif"):
		converted, err := structure.ConvertCIFToPDB(string(data))
		if err != nil {
			return nil, NewInputError("failed to convert CIF structure: %v", err)
		}
		pdbText = converted
	default:
		return nil, NewInputError("unsupported structure format %q: upload must be .pdb, .cif, or .mmcif", filepath.Ext(filename))
	}

	if err := os.WriteFile(ws.NormalizedPDB, []byte(pdbText), 0644); err != nil {
		return nil, fmt.Errorf("failed to write normalized structure: %w", err)
	}

	return structure.ParsePDBSequences(pdbText), nil
}

// Cleanup removes the workspace tree. Best effort only; never called by the
// pipeline itself so failed jobs keep their artifacts for post-mortem.
func (ws *Workspace) Cleanup() {
	_ = os.RemoveAll(ws.Root)
}

// OpenWorkspace points at an existing job directory without creating anything
func OpenWorkspace(jobsDir, jobID string) (*Workspace, error) {
	root := filepath.Join(jobsDir, jobID)
	if err := utils.ValidateDirectory(root); err != nil {
		return nil, err
	}

	return &Workspace{
		JobID:           jobID,
		Root:            root,
		InputsDir:       filepath.Join(root, "inputs"),
		ArtifactsDir:    filepath.Join(root, "artifacts"),
		LogsDir:         filepath.Join(root, "logs"),
		ModelOutputsDir: filepath.Join(root, "model_outputs"),
		SeqsDir:         filepath.Join(root, "model_outputs", "seqs"),
		FormattedDir:    filepath.Join(root, "formatted_outputs"),
		ResponsesDir:    filepath.Join(root, "responses"),
		MetadataDir:     filepath.Join(root, "metadata"),
	}, nil
}
