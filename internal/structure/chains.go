package structure

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

var chainSplitRe = regexp.MustCompile(`[,\s]+`)

// ParseChainSpec normalizes the request's chain field into a ChainSelection.
//
// Accepted shapes: nil/absent, a delimited string ("A", "A,B", "A B"), a
// list of strings, or the sentinel "ALL" (case-insensitive). Empty input and
// "ALL" both resolve to the empty selection, meaning every chain discovered
// in the structure. Tokens keep first-seen order and are de-duplicated.
func ParseChainSpec(value interface{}) (types.ChainSelection, error) {
	var tokens []string

	switch v := value.(type) {
	case nil:
		return types.ChainSelection{}, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return types.ChainSelection{}, nil
		}
		tokens = chainSplitRe.Split(s, -1)
	case []string:
		tokens = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return types.ChainSelection{}, fmt.Errorf("chains list must contain only strings, got %T", item)
			}
			tokens = append(tokens, s)
		}
	default:
		return types.ChainSelection{}, fmt.Errorf("chains must be a string or a list of strings, got %T", value)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		tok = cleanChainToken(tok)
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		ids = append(ids, tok)
	}

	// The explicit all-chains sentinel resolves the same as an absent field
	if len(ids) == 1 && strings.EqualFold(ids[0], "ALL") {
		return types.ChainSelection{}, nil
	}

	return types.ChainSelection{IDs: ids}, nil
}

// cleanChainToken strips surrounding whitespace and accidental quote characters
func cleanChainToken(tok string) string {
	tok = strings.TrimSpace(tok)
	tok = strings.Trim(tok, `"'`)
	return strings.TrimSpace(tok)
}

// ValidateChains checks an explicit selection against the chains discovered
// in the structure. Runs before any external process is started so a typo
// never costs a model invocation.
func ValidateChains(sel types.ChainSelection, sm *SequenceMap) error {
	if !sel.Explicit() {
		return nil
	}

	var missing []string
	for _, c := range sel.IDs {
		if _, ok := sm.Sequence(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("requested chains %v not found, available chains: %v", missing, sm.Chains())
	}
	return nil
}
