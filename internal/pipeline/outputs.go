package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

// fastaRecord is one header/sequence pair from a sequence container file
type fastaRecord struct {
	Header   string
	Sequence string
}

// readFasta parses a FASTA-like file. Multi-line sequences are concatenated.
func readFasta(path string) ([]fastaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence file: %w", err)
	}
	defer f.Close()

	var records []fastaRecord
	var current *fastaRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			records = append(records, fastaRecord{Header: strings.TrimPrefix(line, ">")})
			current = &records[len(records)-1]
			continue
		}
		if current != nil {
			current.Sequence += line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sequence file: %w", err)
	}

	return records, nil
}

// splitSeparators is the fixed priority order for breaking a composite
// record into per-chain parts. The first separator yielding exactly the
// expected number of non-empty parts wins.
var splitSeparators = []string{"/", ":", "|", ","}

// splitMultichainSequence attempts to break seq into len(chains) parts.
// Returns (parts, true) on success; (nil, false) means the record could not
// be split and the caller should fall back to a combined-chain entry. This
// is a documented heuristic, not a guaranteed-correct assignment.
func splitMultichainSequence(seq string, chains []string) ([]string, bool) {
	if len(chains) <= 1 {
		return []string{seq}, true
	}
	for _, sep := range splitSeparators {
		if !strings.Contains(seq, sep) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(seq, sep) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == len(chains) {
			return parts, true
		}
	}
	return nil, false
}

// combinedChainLabel names the synthetic entry used when a composite record
// could not be split into its chains
func combinedChainLabel(chains []string) string {
	return strings.Join(chains, ",")
}

// MapOutputs turns the canonical sequence container into the typed result.
//
// Record 0 is the original combined sequence; records 1..N are designs, one
// per generation index, ranked in file order starting at 1. A non-empty
// requested subset filters design entries down to those chains; the empty
// selection keeps everything.
func MapOutputs(ws *Workspace, allChains []string, sel types.ChainSelection) (map[string]string, []types.DesignedSequence, error) {
	records, err := readFasta(ws.ResultFasta())
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return map[string]string{}, []types.DesignedSequence{}, nil
	}
	if len(allChains) == 0 {
		// minimal fallback, a structure always has at least one chain
		allChains = []string{"A"}
	}

	requested := make(map[string]struct{}, len(sel.IDs))
	for _, c := range sel.IDs {
		requested[c] = struct{}{}
	}
	keep := func(chain string) bool {
		if !sel.Explicit() {
			return true
		}
		_, ok := requested[chain]
		return ok
	}

	original := make(map[string]string)
	if parts, ok := splitMultichainSequence(records[0].Sequence, allChains); ok && len(parts) == len(allChains) {
		for i, c := range allChains {
			original[c] = parts[i]
		}
	} else {
		original[combinedChainLabel(allChains)] = records[0].Sequence
	}

	designed := []types.DesignedSequence{}
	for rank, rec := range records[1:] {
		if parts, ok := splitMultichainSequence(rec.Sequence, allChains); ok && len(parts) == len(allChains) {
			for i, c := range allChains {
				if keep(c) {
					designed = append(designed, types.DesignedSequence{
						Chain:    c,
						Rank:     rank + 1,
						Sequence: parts[i],
					})
				}
			}
		} else {
			designed = append(designed, types.DesignedSequence{
				Chain:    combinedChainLabel(allChains),
				Rank:     rank + 1,
				Sequence: rec.Sequence,
			})
		}
	}

	return original, designed, nil
}
