package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
)

func mockParams(numSeqs, seed int) types.ModelParams {
	return types.ModelParams{
		NumSequences: numSeqs,
		SamplingTemp: "0.1",
		BatchSize:    1,
		ModelName:    "v_48_020",
		Seed:         seed,
	}
}

func runMock(t *testing.T, pdb string, sel types.ChainSelection, params types.ModelParams) (*Workspace, []string, []fastaRecord) {
	t.Helper()
	_, logger := newTestEnv(t)

	ws, err := NewWorkspace(t.TempDir(), "job1")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	sm, err := ws.IngestStructure([]byte(pdb), "1err.pdb")
	if err != nil {
		t.Fatalf("IngestStructure failed: %v", err)
	}

	mr := NewMockRunner(logger)
	chains, runtimeMS, err := mr.Run(context.Background(), ws, sm, sel, params)
	if err != nil {
		t.Fatalf("MockRunner.Run failed: %v", err)
	}
	if runtimeMS <= 0 {
		t.Errorf("runtimeMS = %d, want positive", runtimeMS)
	}

	records, err := readFasta(ws.ResultFasta())
	if err != nil {
		t.Fatalf("result fasta unreadable: %v", err)
	}
	return ws, chains, records
}

func TestMockRunner(t *testing.T) {
	t.Run("writes full artifact shape", func(t *testing.T) {
		ws, chains, records := runMock(t, testPDB("A", "MGKLV"), types.ChainSelection{}, mockParams(3, 0))

		if len(chains) != 1 || chains[0] != "A" {
			t.Errorf("chains = %v, want [A]", chains)
		}
		// record 0 original plus one per requested design
		if len(records) != 4 {
			t.Fatalf("got %d records, want 4", len(records))
		}
		if records[0].Sequence != "MGKLV" {
			t.Errorf("record 0 = %q, want the original sequence", records[0].Sequence)
		}
		if !strings.Contains(records[0].Header, "git_hash="+MockModelRevision) {
			t.Errorf("header %q should carry the mock revision", records[0].Header)
		}

		for _, path := range []string{ws.ParsedJSONL(), ws.ChainIDJSONL(), ws.LogPath()} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("expected artifact %s: %v", path, err)
			}
		}

		log, _ := os.ReadFile(ws.LogPath())
		if !strings.Contains(string(log), "===== mock_model =====") {
			t.Error("run log should record the mock step")
		}
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		_, _, first := runMock(t, testPDB("A", "MGKLVMGKLV"), types.ChainSelection{}, mockParams(3, 42))
		_, _, second := runMock(t, testPDB("A", "MGKLVMGKLV"), types.ChainSelection{}, mockParams(3, 42))

		if len(first) != len(second) {
			t.Fatalf("record counts differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Sequence != second[i].Sequence {
				t.Errorf("record %d differs across runs with the same seed", i)
			}
		}
	})

	t.Run("designs keep length and alphabet", func(t *testing.T) {
		orig := "MGKLVMGKLVMGKLVMGKLV"
		_, _, records := runMock(t, testPDB("A", orig), types.ChainSelection{}, mockParams(2, 7))

		for _, rec := range records[1:] {
			if len(rec.Sequence) != len(orig) {
				t.Errorf("designed length %d, want %d", len(rec.Sequence), len(orig))
			}
			for i := 0; i < len(rec.Sequence); i++ {
				if !strings.ContainsRune(structure.Alphabet, rune(rec.Sequence[i])) {
					t.Errorf("designed sequence contains %q outside the alphabet", rec.Sequence[i])
				}
			}
		}
	})

	t.Run("unknown residues always replaced", func(t *testing.T) {
		_, _, records := runMock(t, testPDB("A", "MXXXXXXXXG"), types.ChainSelection{}, mockParams(2, 0))

		for _, rec := range records[1:] {
			if strings.ContainsRune(rec.Sequence, 'X') {
				t.Errorf("designed sequence %q should not contain X", rec.Sequence)
			}
		}
	})

	t.Run("multichain selection keeps request order in records", func(t *testing.T) {
		sel := types.ChainSelection{IDs: []string{"B", "A"}}
		_, chains, records := runMock(t, testPDB("A", "MMMM", "B", "GGGG"), sel, mockParams(1, 0))

		if len(chains) != 2 || chains[0] != "B" || chains[1] != "A" {
			t.Errorf("chains = %v, want [B A]", chains)
		}
		if records[0].Sequence != "GGGG/MMMM" {
			t.Errorf("record 0 = %q, want chains joined in selection order", records[0].Sequence)
		}
	})

	t.Run("empty selection discovers chains sorted", func(t *testing.T) {
		_, chains, _ := runMock(t, testPDB("B", "MMMM", "A", "GGGG"), types.ChainSelection{}, mockParams(1, 0))
		if len(chains) != 2 || chains[0] != "A" || chains[1] != "B" {
			t.Errorf("chains = %v, want sorted [A B]", chains)
		}
	})
}
