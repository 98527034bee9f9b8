package structure

import (
	"fmt"
	"strings"
)

// Residue alphabet used across the service. 'X' stands for a residue the
// 3-letter table does not cover; it is kept in sequences, never dropped.
const (
	Alphabet       = "ACDEFGHIKLMNPQRSTVWY"
	UnknownResidue = 'X'
)

// DefaultChainID is assigned when an ATOM record carries a blank chain column
const DefaultChainID = "A"

// aa3to1 maps PDB residue names to one-letter codes. Selenomethionine (MSE)
// is recorded as methionine, matching how ProteinMPNN treats it.
var aa3to1 = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"MSE": 'M',
}

// SequenceMap holds per-chain residue sequences in first-appearance order
type SequenceMap struct {
	order []string
	seqs  map[string]string
}

// Chains returns chain identifiers in the order they first appear in the structure
func (sm *SequenceMap) Chains() []string {
	out := make([]string, len(sm.order))
	copy(out, sm.order)
	return out
}

// Sequence returns the residue sequence for a chain
func (sm *SequenceMap) Sequence(chain string) (string, bool) {
	seq, ok := sm.seqs[chain]
	return seq, ok
}

// Sequences returns a chain -> sequence map copy
func (sm *SequenceMap) Sequences() map[string]string {
	out := make(map[string]string, len(sm.seqs))
	for c, s := range sm.seqs {
		out[c] = s
	}
	return out
}

// Len returns the number of chains
func (sm *SequenceMap) Len() int {
	return len(sm.order)
}

func (sm *SequenceMap) append(chain string, aa byte) {
	if sm.seqs == nil {
		sm.seqs = make(map[string]string)
	}
	if _, ok := sm.seqs[chain]; !ok {
		sm.order = append(sm.order, chain)
	}
	sm.seqs[chain] += string(aa)
}

// ParsePDBSequences builds a SequenceMap from PDB ATOM records.
//
// Residues are keyed by (chain, residue number, insertion code); the first
// record seen for a key wins so multi-atom residues contribute one symbol.
// Fixed-column extraction: residue name 18-20, chain 22, resseq 23-26,
// insertion code 27 (1-indexed per the PDB format description).
func ParsePDBSequences(pdbText string) *SequenceMap {
	sm := &SequenceMap{}
	seen := make(map[string]struct{})

	for _, line := range strings.Split(pdbText, "\n") {
		if !strings.HasPrefix(line, "ATOM") || len(line) < 27 {
			continue
		}

		resName := strings.ToUpper(strings.TrimSpace(line[17:20]))
		chain := strings.TrimSpace(line[21:22])
		if chain == "" {
			chain = DefaultChainID
		}
		resSeq := strings.TrimSpace(line[22:26])
		iCode := strings.TrimSpace(line[26:27])

		key := fmt.Sprintf("%s|%s|%s", chain, resSeq, iCode)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		aa, ok := aa3to1[resName]
		if !ok {
			aa = UnknownResidue
		}
		sm.append(chain, aa)
	}

	return sm
}
