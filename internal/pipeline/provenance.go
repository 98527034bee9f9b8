package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/mpnn-design-labs/design-node/internal/types"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// Versions captures the toolchain provenance recorded beside every run
type Versions struct {
	ModelGitSHA    string `json:"model_git_sha"`
	ContainerImage string `json:"container_image"`
	ModelName      string `json:"model_name"`
	Seed           int    `json:"seed"`
}

// WriteJSON writes v pretty-printed to path
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ModelRevision resolves the HEAD commit of the model checkout at dir.
// Errors are returned rather than masked so a misconfigured model
// directory fails the run instead of producing unattributable outputs.
func ModelRevision(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open model repository at %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve model repository HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// CollectVersions assembles the versions record. Both the model revision
// and the container image are mandatory: a run whose provenance cannot be
// established must not complete.
func CollectVersions(modelGitSHA, containerImage, modelName string, seed int) (Versions, error) {
	if modelGitSHA == "" {
		return Versions{}, NewConfigError("model git revision could not be determined")
	}
	if containerImage == "" {
		return Versions{}, NewConfigError("CONTAINER_IMAGE is not set")
	}
	return Versions{
		ModelGitSHA:    modelGitSHA,
		ContainerImage: containerImage,
		ModelName:      modelName,
		Seed:           seed,
	}, nil
}

// WriteChecksums hashes every existing file in paths and writes a
// sha256sum-compatible listing (two spaces between digest and name, names
// relative to root). Missing files are skipped silently since some
// artifacts only exist in real-model runs.
func WriteChecksums(path, root string, paths []string) error {
	var lines []byte
	for _, p := range paths {
		exists, err := utils.FileExists(p)
		if err != nil || !exists {
			continue
		}
		digest, err := utils.Sha256File(p)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		lines = append(lines, []byte(fmt.Sprintf("%s  %s\n", digest, filepath.ToSlash(rel)))...)
	}
	return os.WriteFile(path, lines, 0644)
}

// ManifestChecksums ties the manifest to the exact bytes that were designed
type ManifestChecksums struct {
	InputSHA256    string `json:"input_sha256"`
	InputCID       string `json:"input_cid"`
	ParsedJSONLSHA string `json:"parsed_jsonl_sha256,omitempty"`
}

// Manifest records how a run was requested and what it resolved to, so an
// audit can replay the job from inputs/ alone
type Manifest struct {
	JobID            string              `json:"job_id"`
	OriginalFilename string              `json:"original_filename"`
	Request          types.DesignRequest `json:"request"`
	Effective        types.ModelParams   `json:"effective"`
	Seed             int                 `json:"seed"`
	Checksums        ManifestChecksums   `json:"checksums"`
	Versions         Versions            `json:"versions"`
}

// WriteManifest writes the input manifest beside the uploaded file
func WriteManifest(ws *Workspace, req types.DesignRequest, params types.ModelParams, versions Versions) error {
	inputSHA, err := utils.Sha256File(ws.UploadedPath)
	if err != nil {
		return fmt.Errorf("failed to digest uploaded structure: %w", err)
	}
	inputCID, err := utils.HashFileToCID(ws.UploadedPath)
	if err != nil {
		return fmt.Errorf("failed to derive upload content id: %w", err)
	}

	m := Manifest{
		JobID:            ws.JobID,
		OriginalFilename: filepath.Base(ws.UploadedPath),
		Request:          req,
		Effective:        params,
		Seed:             params.Seed,
		Checksums: ManifestChecksums{
			InputSHA256: inputSHA,
			InputCID:    inputCID,
		},
		Versions: versions,
	}
	if exists, err := utils.FileExists(ws.ParsedJSONL()); err == nil && exists {
		if digest, err := utils.Sha256File(ws.ParsedJSONL()); err == nil {
			m.Checksums.ParsedJSONLSHA = digest
		}
	}
	return WriteJSON(ws.ManifestPath(), m)
}
