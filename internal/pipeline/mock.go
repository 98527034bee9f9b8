package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// MockModelRevision is recorded as the model git revision when no real
// model checkout exists
const MockModelRevision = "0000000000000000000000000000000000000000"

const mockRandomSeqLen = 50

// MockRunner synthesizes plausible-looking designs without invoking the
// external model. It writes the same artifact shapes as the real driver
// (parse record, chain assignment record, original+N sequence container) so
// the output mapper and provenance writer are reused unmodified.
type MockRunner struct {
	logger *utils.LogsManager
}

// NewMockRunner creates a mock generation runner
func NewMockRunner(logger *utils.LogsManager) *MockRunner {
	return &MockRunner{logger: logger}
}

// Run produces deterministic mock artifacts for one workspace. The seeded
// generator is never re-seeded from the clock so repeated runs with the
// same seed yield identical designs.
func (mr *MockRunner) Run(ctx context.Context, ws *Workspace, sm *structure.SequenceMap, sel types.ChainSelection, params types.ModelParams) ([]string, int64, error) {
	chains := sel.IDs
	if len(chains) == 0 {
		chains = sm.Chains()
		sort.Strings(chains)
	}
	if len(chains) == 0 {
		return nil, 0, &ExecutionError{
			Message:    "could not infer chains from structure",
			Returncode: 1,
			Stderr:     "no chains discovered in normalized structure",
		}
	}

	mr.logger.Info(fmt.Sprintf("Job %s running mock model for chains %v", ws.JobID, chains), "pipeline")

	if err := mr.writeParseRecord(ws, sm, chains); err != nil {
		return nil, 0, err
	}
	if err := mr.writeChainAssignment(ws, chains); err != nil {
		return nil, 0, err
	}
	if err := mr.writeSequenceContainer(ws, sm, chains, params); err != nil {
		return nil, 0, err
	}

	res := types.StepResult{Returncode: 0, RuntimeMS: 1, Stdout: "mock run"}
	if err := appendRunLog(ws.LogPath(), "mock_model", []string{"mock_model", ws.BaseName}, res); err != nil {
		return nil, 0, fmt.Errorf("failed to write run log: %w", err)
	}

	return chains, res.RuntimeMS, nil
}

// writeParseRecord emits a parse record shaped like the real helper output
func (mr *MockRunner) writeParseRecord(ws *Workspace, sm *structure.SequenceMap, chains []string) error {
	record := map[string]interface{}{
		"name":          ws.BaseName,
		"num_of_chains": len(chains),
	}
	var combined []string
	for _, c := range chains {
		seq, _ := sm.Sequence(c)
		record["seq_chain_"+c] = seq
		combined = append(combined, seq)
	}
	record["seq"] = strings.Join(combined, "/")

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return os.WriteFile(ws.ParsedJSONL(), append(data, '\n'), 0644)
}

// writeChainAssignment marks every selected chain as free to redesign
func (mr *MockRunner) writeChainAssignment(ws *Workspace, chains []string) error {
	record := map[string]interface{}{
		ws.BaseName: [][]string{chains, {}},
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return os.WriteFile(ws.ChainIDJSONL(), append(data, '\n'), 0644)
}

// writeSequenceContainer writes the original + N designed records and
// renames the file to the canonical result name, like the real pipeline
func (mr *MockRunner) writeSequenceContainer(ws *Workspace, sm *structure.SequenceMap, chains []string, params types.ModelParams) error {
	rng := rand.New(rand.NewSource(int64(params.Seed)))
	temp := parseTemperature(params.SamplingTemp)

	originals := make([]string, len(chains))
	for i, c := range chains {
		originals[i], _ = sm.Sequence(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, ">%s, model_name=%s, git_hash=%s, seed=%d\n",
		ws.BaseName, params.ModelName, MockModelRevision, params.Seed)
	b.WriteString(strings.Join(originals, "/") + "\n")

	for i := 1; i <= params.NumSequences; i++ {
		designed := make([]string, len(chains))
		for j := range chains {
			designed[j] = mutateSequence(originals[j], rng, temp)
		}
		fmt.Fprintf(&b, ">sample=%d\n", i)
		b.WriteString(strings.Join(designed, "/") + "\n")
	}

	tmpPath := filepath.Join(ws.SeqsDir, ws.BaseName+".fa")
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0644); err != nil {
		return err
	}

	_, err := renameFirstFastaToResult(ws.SeqsDir, ws.BaseName)
	return err
}

// mutateSequence flips a temperature-scaled fraction of positions to a
// uniformly-chosen different residue. Unknown residues are always replaced.
// An empty original yields a random fixed-length sequence instead.
func mutateSequence(seq string, rng *rand.Rand, temperature float64) string {
	if seq == "" {
		out := make([]byte, mockRandomSeqLen)
		for i := range out {
			out[i] = structure.Alphabet[rng.Intn(len(structure.Alphabet))]
		}
		return string(out)
	}

	frac := 0.10 * temperature
	if frac < 0.02 {
		frac = 0.02
	}
	if frac > 0.30 {
		frac = 0.30
	}

	out := []byte(seq)
	for i, aa := range out {
		if aa == structure.UnknownResidue {
			out[i] = structure.Alphabet[rng.Intn(len(structure.Alphabet))]
			continue
		}
		if rng.Float64() < frac {
			out[i] = randomOtherResidue(rng, aa)
		}
	}
	return string(out)
}

// randomOtherResidue picks a uniformly random residue different from aa
func randomOtherResidue(rng *rand.Rand, aa byte) byte {
	for {
		candidate := structure.Alphabet[rng.Intn(len(structure.Alphabet))]
		if candidate != aa {
			return candidate
		}
	}
}

func parseTemperature(s string) float64 {
	if t, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && t > 0 {
		return t
	}
	return 1.0
}
