package perm

import (
	"slices"
	"testing"
)

func TestSeq(t *testing.T) {
	if got := Seq(4); !slices.Equal(got, []int{0, 1, 2, 3}) {
		t.Errorf("Seq(4) = %v", got)
	}
	if got := Seq(0); len(got) != 0 {
		t.Errorf("Seq(0) = %v, want empty", got)
	}
	if got := Seq(-1); len(got) != 0 {
		t.Errorf("Seq(-1) = %v, want empty", got)
	}
}

func TestFactorial(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {4, 24}, {6, 720},
	}
	for _, tt := range tests {
		if got := Factorial(tt.n); got != tt.want {
			t.Errorf("Factorial(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	perms := Generate(4, -1)
	if len(perms) != 24 {
		t.Fatalf("Generate(4, -1) returned %d permutations, want 24", len(perms))
	}

	// First permutation is the identity.
	if !slices.Equal(perms[0], []int{0, 1, 2, 3}) {
		t.Errorf("first permutation = %v, want identity", perms[0])
	}

	// All distinct.
	seen := make(map[string]bool)
	for _, p := range perms {
		key := ""
		for _, v := range p {
			key += string(rune('0' + v))
		}
		if seen[key] {
			t.Errorf("duplicate permutation %v", p)
		}
		seen[key] = true
	}
}

func TestGenerateLimit(t *testing.T) {
	if got := Generate(10, 5); len(got) != 5 {
		t.Errorf("Generate(10, 5) returned %d permutations, want 5", len(got))
	}
}

func TestGenerateHalf(t *testing.T) {
	half := GenerateHalf(4)
	if len(half) != 12 {
		t.Fatalf("GenerateHalf(4) returned %d permutations, want 12", len(half))
	}

	// No permutation and its reversal both present.
	key := func(p []int) string {
		s := ""
		for _, v := range p {
			s += string(rune('0' + v))
		}
		return s
	}
	seen := make(map[string]bool)
	for _, p := range half {
		seen[key(p)] = true
	}
	for _, p := range half {
		rev := slices.Clone(p)
		slices.Reverse(rev)
		if key(rev) != key(p) && seen[key(rev)] {
			t.Errorf("both %v and its reversal present", p)
		}
	}
}

func TestTranspositions(t *testing.T) {
	swaps := Transpositions(4)
	if len(swaps) != 6 {
		t.Fatalf("Transpositions(4) returned %d, want 6", len(swaps))
	}
	// Each differs from the identity in exactly two positions.
	for _, p := range swaps {
		diff := 0
		for i, v := range p {
			if v != i {
				diff++
			}
		}
		if diff != 2 {
			t.Errorf("transposition %v differs in %d positions, want 2", p, diff)
		}
	}
	// First swap is (0,1) per the documented order.
	if !slices.Equal(swaps[0], []int{1, 0, 2, 3}) {
		t.Errorf("first transposition = %v, want [1 0 2 3]", swaps[0])
	}
}

func TestRandom(t *testing.T) {
	a := Random(5, 10, 42)
	b := Random(5, 10, 42)
	if len(a) != 10 {
		t.Fatalf("Random returned %d permutations, want 10", len(a))
	}
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			t.Errorf("same seed produced different permutation at %d: %v vs %v", i, a[i], b[i])
		}
	}
	for _, p := range a {
		if slices.Equal(p, Seq(5)) {
			t.Error("Random included the identity permutation")
		}
	}
}
