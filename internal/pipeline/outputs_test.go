package pipeline

import (
	"os"
	"reflect"
	"testing"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

func writeResultFasta(t *testing.T, ws *Workspace, content string) {
	t.Helper()
	if err := os.WriteFile(ws.ResultFasta(), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write result fasta: %v", err)
	}
}

func outputsWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir(), "job1")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	ws.BaseName = "1err"
	return ws
}

func TestMapOutputs(t *testing.T) {
	t.Run("composite records split per chain", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">1err, score=1.2\nAAAA/BBBB\n>sample=1\nCCCC/DDDD\n>sample=2\nEEEE/FFFF\n")

		originals, designed, err := MapOutputs(ws, []string{"A", "B"}, types.ChainSelection{})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}

		want := map[string]string{"A": "AAAA", "B": "BBBB"}
		if !reflect.DeepEqual(originals, want) {
			t.Errorf("originals = %v, want %v", originals, want)
		}

		if len(designed) != 4 {
			t.Fatalf("got %d designed entries, want 4", len(designed))
		}
		first := designed[0]
		if first.Chain != "A" || first.Rank != 1 || first.Sequence != "CCCC" {
			t.Errorf("first entry = %+v, want chain A rank 1 CCCC", first)
		}
		last := designed[3]
		if last.Chain != "B" || last.Rank != 2 || last.Sequence != "FFFF" {
			t.Errorf("last entry = %+v, want chain B rank 2 FFFF", last)
		}
	})

	t.Run("separator priority tries slash before colon", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">orig\nAA:AA/BB:BB\n>sample=1\nCC:CC/DD:DD\n")

		originals, _, err := MapOutputs(ws, []string{"A", "B"}, types.ChainSelection{})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}
		if originals["A"] != "AA:AA" || originals["B"] != "BB:BB" {
			t.Errorf("slash should win over colon, got %v", originals)
		}
	})

	t.Run("explicit subset filters designed entries", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">orig\nAAAA/BBBB\n>sample=1\nCCCC/DDDD\n")

		_, designed, err := MapOutputs(ws, []string{"A", "B"}, types.ChainSelection{IDs: []string{"B"}})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}
		if len(designed) != 1 || designed[0].Chain != "B" || designed[0].Sequence != "DDDD" {
			t.Errorf("designed = %+v, want single chain B entry", designed)
		}
	})

	t.Run("unsplittable record falls back to combined label", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">orig\nAAAABBBB\n>sample=1\nCCCCDDDD\n")

		originals, designed, err := MapOutputs(ws, []string{"A", "B"}, types.ChainSelection{})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}
		if _, ok := originals["A,B"]; !ok {
			t.Errorf("originals should use combined label, got %v", originals)
		}
		if len(designed) != 1 || designed[0].Chain != "A,B" {
			t.Errorf("designed = %+v, want combined-label entry", designed)
		}
	})

	t.Run("single chain never splits", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">orig\nAA/AA\n>sample=1\nCC/CC\n")

		originals, _, err := MapOutputs(ws, []string{"A"}, types.ChainSelection{})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}
		if originals["A"] != "AA/AA" {
			t.Errorf("single-chain sequence should be kept whole, got %v", originals)
		}
	})

	t.Run("original-only file yields no designs", func(t *testing.T) {
		ws := outputsWorkspace(t)
		writeResultFasta(t, ws, ">orig\nAAAA\n")

		_, designed, err := MapOutputs(ws, []string{"A"}, types.ChainSelection{})
		if err != nil {
			t.Fatalf("MapOutputs failed: %v", err)
		}
		if len(designed) != 0 {
			t.Errorf("designed = %+v, want empty", designed)
		}
	})
}
