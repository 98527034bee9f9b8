package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// newTestEnv isolates app paths in a temp dir and returns a config manager
// and logger backed by it
func newTestEnv(t *testing.T) (*utils.ConfigManager, *utils.LogsManager) {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base+"/config")
	t.Setenv("XDG_DATA_HOME", base+"/data")
	t.Setenv("XDG_CACHE_HOME", base+"/cache")

	cm := utils.NewConfigManager("")
	logger := utils.NewLogsManager(cm)
	t.Cleanup(func() { logger.Close() })
	return cm, logger
}

// testAtomLine formats a column-correct PDB ATOM record
func testAtomLine(serial int, resName, chain string, resSeq int) string {
	return fmt.Sprintf("ATOM  %5d %-4s %-3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f           C",
		serial, "CA", resName, chain, resSeq, 1.0, 2.0, 3.0, 1.0, 0.0)
}

// testPDB builds a structure with the given per-chain sequences, e.g.
// testPDB("A", "MG", "B", "W")
func testPDB(pairs ...string) string {
	aa1to3 := map[byte]string{
		'A': "ALA", 'C': "CYS", 'D': "ASP", 'E': "GLU", 'F': "PHE",
		'G': "GLY", 'H': "HIS", 'I': "ILE", 'K': "LYS", 'L': "LEU",
		'M': "MET", 'N': "ASN", 'P': "PRO", 'Q': "GLN", 'R': "ARG",
		'S': "SER", 'T': "THR", 'V': "VAL", 'W': "TRP", 'Y': "TYR",
		'X': "UNK",
	}

	var lines []string
	serial := 1
	for i := 0; i+1 < len(pairs); i += 2 {
		chain, seq := pairs[i], pairs[i+1]
		for j := 0; j < len(seq); j++ {
			lines = append(lines, testAtomLine(serial, aa1to3[seq[j]], chain, j+1))
			serial++
		}
	}
	lines = append(lines, "END")
	return strings.Join(lines, "\n")
}
