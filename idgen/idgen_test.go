package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_UniqueAndParsable(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for range 100 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		if _, err := Parse(id); err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
	}
}

func TestEpoch(t *testing.T) {
	id := Epoch(5)()
	if len(id) != 13+5 {
		t.Errorf("length: got %d (%s)", len(id), id)
	}
	for _, r := range id {
		if !strings.ContainsRune(base36, r) {
			t.Errorf("unexpected rune %q in %s", r, id)
		}
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("ann-")
	if a, b := gen(), gen(); a != "ann-1" || b != "ann-2" {
		t.Errorf("got %s %s", a, b)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error")
	}
}
