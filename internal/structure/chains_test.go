package structure

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseChainSpec(t *testing.T) {
	t.Run("equivalent shapes resolve identically", func(t *testing.T) {
		shapes := map[string]interface{}{
			"comma string":       "A,B",
			"spaced string":      "A B",
			"comma and space":    "A, B",
			"string list":        []string{"A", "B"},
			"interface list":     []interface{}{"A", "B"},
			"quoted tokens":      `"A" 'B'`,
			"duplicate tokens":   "A,B,A",
			"trailing separator": "A,B,",
		}

		for name, shape := range shapes {
			t.Run(name, func(t *testing.T) {
				sel, err := ParseChainSpec(shape)
				if err != nil {
					t.Fatalf("ParseChainSpec(%v) error: %v", shape, err)
				}
				if !reflect.DeepEqual(sel.IDs, []string{"A", "B"}) {
					t.Errorf("ParseChainSpec(%v) = %v, want [A B]", shape, sel.IDs)
				}
			})
		}
	})

	t.Run("empty forms mean all chains", func(t *testing.T) {
		for name, shape := range map[string]interface{}{
			"nil":          nil,
			"empty string": "",
			"whitespace":   "   ",
			"ALL":          "ALL",
			"all lower":    "all",
		} {
			t.Run(name, func(t *testing.T) {
				sel, err := ParseChainSpec(shape)
				if err != nil {
					t.Fatalf("ParseChainSpec(%v) error: %v", shape, err)
				}
				if sel.Explicit() {
					t.Errorf("ParseChainSpec(%v) = %v, want empty selection", shape, sel.IDs)
				}
			})
		}
	})

	t.Run("first-seen order is kept", func(t *testing.T) {
		sel, err := ParseChainSpec("C,A,B,A")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(sel.IDs, []string{"C", "A", "B"}) {
			t.Errorf("got %v, want [C A B]", sel.IDs)
		}
	})

	t.Run("rejects non-string list items", func(t *testing.T) {
		if _, err := ParseChainSpec([]interface{}{"A", 2}); err == nil {
			t.Error("expected error for non-string list item")
		}
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		if _, err := ParseChainSpec(42); err == nil {
			t.Error("expected error for numeric chains value")
		}
	})
}

func TestValidateChains(t *testing.T) {
	sm := ParsePDBSequences(strings.Join([]string{
		atomLine(1, "N", "GLY", "A", 1, ""),
		atomLine(2, "N", "ALA", "B", 1, ""),
	}, "\n"))

	t.Run("known subset passes", func(t *testing.T) {
		sel, _ := ParseChainSpec("B")
		if err := ValidateChains(sel, sm); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("empty selection passes", func(t *testing.T) {
		sel, _ := ParseChainSpec("")
		if err := ValidateChains(sel, sm); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unknown chain is rejected with available list", func(t *testing.T) {
		sel, _ := ParseChainSpec("A,Z")
		err := ValidateChains(sel, sm)
		if err == nil {
			t.Fatal("expected error for unknown chain")
		}
		if !strings.Contains(err.Error(), "Z") || !strings.Contains(err.Error(), "available chains") {
			t.Errorf("error %q should name the missing chain and the available ones", err.Error())
		}
	})
}
