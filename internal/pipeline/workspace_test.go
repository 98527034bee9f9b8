package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWorkspace(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "job1")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}

	for _, dir := range []string{
		ws.InputsDir, ws.ArtifactsDir, ws.LogsDir, ws.SeqsDir,
		ws.FormattedDir, ws.ResponsesDir, ws.MetadataDir,
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestIngestStructure(t *testing.T) {
	t.Run("pdb upload is kept verbatim and normalized", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir(), "job1")
		if err != nil {
			t.Fatalf("NewWorkspace failed: %v", err)
		}

		pdb := testPDB("A", "MGK")
		sm, err := ws.IngestStructure([]byte(pdb), "1err.pdb")
		if err != nil {
			t.Fatalf("IngestStructure failed: %v", err)
		}

		if ws.BaseName != "1err" {
			t.Errorf("BaseName = %q, want 1err", ws.BaseName)
		}

		raw, err := os.ReadFile(filepath.Join(ws.InputsDir, "1err.pdb"))
		if err != nil || string(raw) != pdb {
			t.Error("uploaded bytes should be stored untouched under inputs/")
		}
		if _, err := os.Stat(filepath.Join(ws.ArtifactsDir, "1err.pdb")); err != nil {
			t.Error("normalized PDB should exist under artifacts/")
		}
		if seq, _ := sm.Sequence("A"); seq != "MGK" {
			t.Errorf("chain A sequence = %q, want MGK", seq)
		}
	})

	t.Run("cif upload is converted", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir(), "job2")
		if err != nil {
			t.Fatalf("NewWorkspace failed: %v", err)
		}

		cif := strings.Join([]string{
			"data_test",
			"loop_",
			"_atom_site.group_PDB",
			"_atom_site.id",
			"_atom_site.type_symbol",
			"_atom_site.label_atom_id",
			"_atom_site.label_alt_id",
			"_atom_site.label_comp_id",
			"_atom_site.auth_asym_id",
			"_atom_site.auth_seq_id",
			"_atom_site.Cartn_x",
			"_atom_site.Cartn_y",
			"_atom_site.Cartn_z",
			"ATOM 1 N N . MET A 1 1.0 2.0 3.0",
			"ATOM 2 N N . GLY A 2 1.0 2.0 3.0",
			"",
		}, "\n")

		sm, err := ws.IngestStructure([]byte(cif), "5xyz.cif")
		if err != nil {
			t.Fatalf("IngestStructure failed: %v", err)
		}

		normalized, err := os.ReadFile(ws.NormalizedPDB)
		if err != nil {
			t.Fatalf("normalized structure missing: %v", err)
		}
		if !strings.HasPrefix(string(normalized), "ATOM") {
			t.Error("normalized structure should contain ATOM records")
		}
		if seq, _ := sm.Sequence("A"); seq != "MG" {
			t.Errorf("chain A sequence = %q, want MG", seq)
		}
	})

	t.Run("unsupported extension is an input error", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir(), "job3")
		if err != nil {
			t.Fatalf("NewWorkspace failed: %v", err)
		}

		_, err = ws.IngestStructure([]byte("not a structure"), "seq.fasta")
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError, got %v", err)
		}
		if !strings.Contains(inputErr.Message, "unsupported structure format") {
			t.Errorf("unexpected message: %q", inputErr.Message)
		}
	})

	t.Run("empty upload is an input error", func(t *testing.T) {
		ws, err := NewWorkspace(t.TempDir(), "job4")
		if err != nil {
			t.Fatalf("NewWorkspace failed: %v", err)
		}

		_, err = ws.IngestStructure(nil, "1err.pdb")
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("expected InputError, got %v", err)
		}
	})
}
