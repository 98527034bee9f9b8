package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
)

// fakeStore records job index calls in memory
type fakeStore struct {
	created   []types.DesignJob
	completed map[string]int64
	failed    map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed: make(map[string]int64),
		failed:    make(map[string]string),
	}
}

func (s *fakeStore) CreateJob(job types.DesignJob) error {
	s.created = append(s.created, job)
	return nil
}

func (s *fakeStore) CompleteJob(id string, runtimeMS int64) error {
	s.completed[id] = runtimeMS
	return nil
}

func (s *fakeStore) FailJob(id, errMsg string) error {
	s.failed[id] = errMsg
	return nil
}

func intPtr(n int) *int {
	return &n
}

// panicRunner simulates a crashing generation stage
type panicRunner struct{}

func (panicRunner) Run(ctx context.Context, ws *Workspace, sm *structure.SequenceMap, sel types.ChainSelection, params types.ModelParams) ([]string, int64, error) {
	panic("runner crashed")
}

func testDesigner(t *testing.T, store JobStore) *Designer {
	t.Helper()
	cm, logger := newTestEnv(t)
	t.Setenv("CONTAINER_IMAGE", "ghcr.io/mpnn-design-labs/proteinmpnn:1.0")

	return &Designer{
		cm:       cm,
		logger:   logger,
		runner:   NewMockRunner(logger),
		gate:     NewAdmissionGate(1),
		store:    store,
		jobsDir:  t.TempDir(),
		mockMode: true,
		maxSeqs:  10,
	}
}

func TestDesignerDesign(t *testing.T) {
	t.Run("end to end in mock mode", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		req := types.DesignRequest{
			Chains:       types.ChainSelection{IDs: []string{"A"}},
			NumSequences: intPtr(2),
		}
		jobID, resp, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKLVMGKLV")), req)
		if err != nil {
			t.Fatalf("Design failed: %v", err)
		}

		if len(resp.DesignedSequences) != 2 {
			t.Fatalf("got %d designed sequences, want 2", len(resp.DesignedSequences))
		}
		if resp.OriginalSequences["A"] != "MGKLVMGKLV" {
			t.Errorf("originals = %v, want chain A MGKLVMGKLV", resp.OriginalSequences)
		}
		if resp.Metadata.ModelVersion != "v_48_020" {
			t.Errorf("model version = %q, want the weights name", resp.Metadata.ModelVersion)
		}
		for _, ds := range resp.DesignedSequences {
			if ds.DiffPositions == nil {
				t.Errorf("entry %+v should carry diff positions", ds)
			}
		}

		// persisted artifacts
		root := filepath.Join(d.jobsDir, jobID)
		for _, rel := range []string{
			"responses/response.json",
			"metadata/versions.json",
			"metadata/checksums.sha256",
			"inputs/manifest.json",
			"logs/run.log",
		} {
			if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
				t.Errorf("expected artifact %s: %v", rel, err)
			}
		}

		// response.json mirrors the returned document
		stored, err := os.ReadFile(filepath.Join(root, "responses", "response.json"))
		if err != nil {
			t.Fatalf("response.json unreadable: %v", err)
		}
		var onDisk types.DesignResponse
		if err := json.Unmarshal(stored, &onDisk); err != nil {
			t.Fatalf("response.json invalid: %v", err)
		}
		if len(onDisk.DesignedSequences) != len(resp.DesignedSequences) {
			t.Error("stored response should mirror the returned one")
		}

		// versions record is mandatory provenance
		versionsData, _ := os.ReadFile(filepath.Join(root, "metadata", "versions.json"))
		var versions Versions
		if err := json.Unmarshal(versionsData, &versions); err != nil {
			t.Fatalf("versions.json invalid: %v", err)
		}
		if versions.ModelGitSHA != MockModelRevision {
			t.Errorf("model_git_sha = %q, want mock revision", versions.ModelGitSHA)
		}
		if versions.ContainerImage != "ghcr.io/mpnn-design-labs/proteinmpnn:1.0" {
			t.Errorf("container_image = %q", versions.ContainerImage)
		}

		// input manifest ties the run back to what was asked for
		manifestData, _ := os.ReadFile(filepath.Join(root, "inputs", "manifest.json"))
		var manifest Manifest
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			t.Fatalf("manifest.json invalid: %v", err)
		}
		if manifest.OriginalFilename != "1err.pdb" {
			t.Errorf("original_filename = %q", manifest.OriginalFilename)
		}
		if manifest.Effective.NumSequences != 2 {
			t.Errorf("effective num_sequences = %d, want 2", manifest.Effective.NumSequences)
		}
		if manifest.Checksums.InputSHA256 == "" || manifest.Checksums.InputCID == "" {
			t.Error("manifest should carry the input digests")
		}
		if manifest.Versions.ModelGitSHA != MockModelRevision {
			t.Errorf("manifest model_git_sha = %q", manifest.Versions.ModelGitSHA)
		}

		// job index lifecycle
		if len(store.created) != 1 || store.created[0].ID != jobID {
			t.Errorf("store.created = %+v, want one entry for %s", store.created, jobID)
		}
		if store.created[0].InputCID == "" || store.created[0].InputSHA == "" {
			t.Error("index entry should carry both digests")
		}
		if _, ok := store.completed[jobID]; !ok {
			t.Errorf("job %s should be marked completed", jobID)
		}
	})

	t.Run("sequence count out of range is rejected before any work", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		_, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")), types.DesignRequest{NumSequences: intPtr(11)})
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError, got %v", err)
		}
		if len(store.created) != 0 {
			t.Error("rejected request should not be indexed")
		}
	})

	t.Run("explicit zero sequence count is rejected not defaulted", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		_, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")), types.DesignRequest{NumSequences: intPtr(0)})
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError, got %v", err)
		}
	})

	t.Run("unknown chain is an input error and job is recorded errored", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		jobID, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")),
			types.DesignRequest{Chains: types.ChainSelection{IDs: []string{"Z"}}})
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError, got %v", err)
		}
		if msg, ok := store.failed[jobID]; !ok || !strings.Contains(msg, "Z") {
			t.Errorf("job should be marked errored with the missing chain, got %v", store.failed)
		}
	})

	t.Run("busy gate rejects instead of queueing", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		if !d.gate.TryAcquire() {
			t.Fatal("setup acquire failed")
		}
		defer d.gate.Release()

		_, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")), types.DesignRequest{})
		var busyErr *BusyError
		if !errors.As(err, &busyErr) {
			t.Fatalf("expected BusyError, got %v", err)
		}
	})

	t.Run("admission slot is released when the runner panics", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)
		d.runner = panicRunner{}

		func() {
			defer func() { recover() }()
			d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")), types.DesignRequest{})
		}()

		if d.gate.InUse() != 0 {
			t.Errorf("gate still holds %d slots after panic", d.gate.InUse())
		}
		if !d.gate.TryAcquire() {
			t.Error("gate should admit a new job after the panic")
		}
	})

	t.Run("missing container image is a config error", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)
		t.Setenv("CONTAINER_IMAGE", "")

		_, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKL")), types.DesignRequest{})
		var configErr *ConfigError
		if !errors.As(err, &configErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})

	t.Run("defaults applied when request is empty", func(t *testing.T) {
		store := newFakeStore()
		d := testDesigner(t, store)

		_, resp, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKLVMGKLV")), types.DesignRequest{})
		if err != nil {
			t.Fatalf("Design failed: %v", err)
		}
		// design_default_sequences is 5
		if len(resp.DesignedSequences) != 5 {
			t.Errorf("got %d designed sequences, want the default 5", len(resp.DesignedSequences))
		}
	})
}

func TestDesignerChecksums(t *testing.T) {
	store := newFakeStore()
	d := testDesigner(t, store)

	jobID, _, err := d.Design(context.Background(), "1err.pdb", []byte(testPDB("A", "MGKLVMGKLV")),
		types.DesignRequest{NumSequences: intPtr(1)})
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(d.jobsDir, jobID, "metadata", "checksums.sha256"))
	if err != nil {
		t.Fatalf("checksums missing: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 {
		t.Fatal("checksums file is empty")
	}
	seen := make(map[string]bool)
	for _, line := range lines {
		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 || len(parts[0]) != 64 {
			t.Errorf("malformed checksum line %q", line)
			continue
		}
		seen[parts[1]] = true
	}
	for _, rel := range []string{"inputs/1err.pdb", "inputs/manifest.json", "responses/response.json", "metadata/versions.json"} {
		if !seen[rel] {
			t.Errorf("checksums should cover %s, got %v", rel, seen)
		}
	}
}
