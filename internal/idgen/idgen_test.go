package idgen

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

func TestRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Random{}.NewID()
		if !idPattern.MatchString(id) {
			t.Fatalf("id %q does not match ORD-XXXXXXXX", id)
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Errorf("expected mostly unique ids, got %d distinct of 100", len(seen))
	}
}

func TestSequential(t *testing.T) {
	gen := NewSequential(0xFE)
	want := []string{"ORD-000000FE", "ORD-000000FF", "ORD-00000100"}
	for _, w := range want {
		if got := gen.NewID(); got != w {
			t.Errorf("NewID() = %s, want %s", got, w)
		}
	}
}

func TestScripted(t *testing.T) {
	gen := NewScripted(NewSequential(1), "ORD-AAAAAAAA", "ORD-AAAAAAAA")
	want := []string{"ORD-AAAAAAAA", "ORD-AAAAAAAA", "ORD-00000001"}
	for _, w := range want {
		if got := gen.NewID(); got != w {
			t.Errorf("NewID() = %s, want %s", got, w)
		}
	}
}
