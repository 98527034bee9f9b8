package structure

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// atomLine formats a minimal but column-correct PDB ATOM record
func atomLine(serial int, atomName, resName, chain string, resSeq int, iCode string) string {
	if iCode == "" {
		iCode = " "
	}
	ch := " "
	if chain != "" {
		ch = chain
	}
	return fmt.Sprintf("ATOM  %5d %-4s %-3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		serial, atomName, resName, ch, resSeq, iCode, 1.0, 2.0, 3.0, 1.0, 0.0, "C")
}

func TestParsePDBSequences(t *testing.T) {
	t.Run("basic two-chain structure", func(t *testing.T) {
		pdb := strings.Join([]string{
			atomLine(1, "N", "MET", "A", 1, ""),
			atomLine(2, "CA", "MET", "A", 1, ""),
			atomLine(3, "N", "GLY", "A", 2, ""),
			atomLine(4, "N", "ALA", "B", 1, ""),
			atomLine(5, "N", "TRP", "B", 2, ""),
			"TER",
			"END",
		}, "\n")

		sm := ParsePDBSequences(pdb)

		if got := sm.Chains(); !reflect.DeepEqual(got, []string{"A", "B"}) {
			t.Fatalf("Chains() = %v, want [A B]", got)
		}
		if seq, _ := sm.Sequence("A"); seq != "MG" {
			t.Errorf("chain A sequence = %q, want MG", seq)
		}
		if seq, _ := sm.Sequence("B"); seq != "AW" {
			t.Errorf("chain B sequence = %q, want AW", seq)
		}
	})

	t.Run("multi-atom residues contribute one symbol", func(t *testing.T) {
		pdb := strings.Join([]string{
			atomLine(1, "N", "LEU", "A", 1, ""),
			atomLine(2, "CA", "LEU", "A", 1, ""),
			atomLine(3, "CB", "LEU", "A", 1, ""),
			atomLine(4, "O", "LEU", "A", 1, ""),
		}, "\n")

		sm := ParsePDBSequences(pdb)
		if seq, _ := sm.Sequence("A"); seq != "L" {
			t.Errorf("sequence = %q, want L", seq)
		}
	})

	t.Run("insertion codes are distinct residues", func(t *testing.T) {
		pdb := strings.Join([]string{
			atomLine(1, "N", "SER", "A", 10, ""),
			atomLine(2, "N", "THR", "A", 10, "A"),
			atomLine(3, "N", "VAL", "A", 11, ""),
		}, "\n")

		sm := ParsePDBSequences(pdb)
		if seq, _ := sm.Sequence("A"); seq != "STV" {
			t.Errorf("sequence = %q, want STV", seq)
		}
	})

	t.Run("blank chain column defaults to A", func(t *testing.T) {
		pdb := atomLine(1, "N", "LYS", "", 1, "")

		sm := ParsePDBSequences(pdb)
		if seq, ok := sm.Sequence("A"); !ok || seq != "K" {
			t.Errorf("Sequence(A) = %q, %v; want K, true", seq, ok)
		}
	})

	t.Run("selenomethionine maps to M", func(t *testing.T) {
		pdb := atomLine(1, "SE", "MSE", "A", 1, "")

		sm := ParsePDBSequences(pdb)
		if seq, _ := sm.Sequence("A"); seq != "M" {
			t.Errorf("sequence = %q, want M", seq)
		}
	})

	t.Run("unknown residue name becomes X", func(t *testing.T) {
		pdb := strings.Join([]string{
			atomLine(1, "N", "GLY", "A", 1, ""),
			atomLine(2, "P", "UNK", "A", 2, ""),
			atomLine(3, "N", "GLY", "A", 3, ""),
		}, "\n")

		sm := ParsePDBSequences(pdb)
		if seq, _ := sm.Sequence("A"); seq != "GXG" {
			t.Errorf("sequence = %q, want GXG", seq)
		}
	})

	t.Run("non-ATOM records are ignored", func(t *testing.T) {
		pdb := strings.Join([]string{
			"HEADER    OXIDOREDUCTASE",
			"HETATM    1  O   HOH A 101      1.000   2.000   3.000  1.00  0.00           O",
			atomLine(2, "N", "PHE", "A", 1, ""),
			"ANISOU    2  N   PHE A   1      100    100    100      0      0      0       N",
		}, "\n")

		sm := ParsePDBSequences(pdb)
		if seq, _ := sm.Sequence("A"); seq != "F" {
			t.Errorf("sequence = %q, want F", seq)
		}
	})

	t.Run("empty input yields empty map", func(t *testing.T) {
		sm := ParsePDBSequences("")
		if sm.Len() != 0 {
			t.Errorf("Len() = %d, want 0", sm.Len())
		}
	})
}
