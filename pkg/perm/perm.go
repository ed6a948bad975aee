// Package perm provides the permutation utilities behind the ripple
// window search: full enumeration via Heap's algorithm, pairwise
// transpositions, and seeded random shuffles.
package perm

import (
	"math/rand/v2"
	"slices"
)

// Seq returns a slice containing the sequence [0, 1, 2, ..., n-1].
// This is useful for initializing permutation arrays or creating index sequences.
//
// For n <= 0, Seq returns an empty slice.
func Seq(n int) []int {
	result := make([]int, max(n, 0))
	for i := range result {
		result[i] = i
	}
	return result
}

// Factorial returns n! (n factorial), the product 1 × 2 × ... × n.
// For n <= 1, Factorial returns 1.
//
// This function is useful for calculating the size of the full permutation space.
// Note that factorials grow extremely fast: 13! = 6,227,020,800 exceeds 32-bit int.
func Factorial(n int) int {
	result := 1
	for i := 2; i <= n; i++ {
		result *= i
	}
	return result
}

// Generate returns permutations of [0, 1, ..., n-1] using Heap's algorithm.
//
// If limit > 0, Generate returns at most limit permutations.
// If limit <= 0, Generate returns all n! permutations.
//
// Each returned slice is a separate allocation, safe to modify without affecting others.
//
// Generate handles edge cases gracefully:
//   - n = 0: returns [[]] (one empty permutation)
//   - n = 1: returns [[0]] (one single-element permutation)
//
// For n >= 13, the number of permutations exceeds billions. Always use a limit
// when n is large, or your program will exhaust memory.
//
// Heap's algorithm generates permutations in a non-lexicographic order, but
// efficiently produces each permutation exactly once. The first permutation
// returned is always the identity.
func Generate(n, limit int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	if n == 1 {
		return [][]int{{0}}
	}

	perm := Seq(n)
	state := make([]int, n)

	capacity := limit
	if capacity <= 0 || n <= 12 {
		capacity = Factorial(min(n, 12))
	}
	result := make([][]int, 0, capacity)
	result = append(result, slices.Clone(perm))

	for i := 0; i < n && (limit <= 0 || len(result) < limit); {
		if state[i] < i {
			if i&1 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[state[i]], perm[i] = perm[i], perm[state[i]]
			}
			result = append(result, slices.Clone(perm))
			state[i]++
			i = 0
		} else {
			state[i] = 0
			i++
		}
	}
	return result
}

// GenerateHalf returns the permutations of [0, ..., n-1] with mirror
// duplicates removed: of each permutation and its reversal, only the one
// appearing first in Heap order is kept. A marker order and its reversal
// describe the same linkage map, so a window search only needs half the
// space (n!/2 candidates for n >= 2).
func GenerateHalf(n int) [][]int {
	all := Generate(n, -1)
	if n < 2 {
		return all
	}
	seen := make(map[string]bool, len(all))
	result := make([][]int, 0, len(all)/2)
	buf := make([]byte, n)
	key := func(p []int) string {
		for i, v := range p {
			buf[i] = byte(v)
		}
		return string(buf)
	}
	for _, p := range all {
		if seen[key(p)] {
			continue
		}
		result = append(result, p)
		rev := slices.Clone(p)
		slices.Reverse(rev)
		seen[key(rev)] = true
		seen[key(p)] = true
	}
	return result
}

// Transpositions returns every permutation of [0, ..., n-1] reachable by
// swapping one pair of positions, in (i, j) lexicographic order of the
// swapped pair. The identity is not included. The count is n(n-1)/2.
func Transpositions(n int) [][]int {
	result := make([][]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := Seq(n)
			p[i], p[j] = p[j], p[i]
			result = append(result, p)
		}
	}
	return result
}

// Random returns count random permutations of [0, ..., n-1] drawn with a
// deterministic generator seeded by seed. Duplicates are possible; the
// identity is excluded so every candidate differs from the current order.
func Random(n, count int, seed uint64) [][]int {
	rng := rand.New(rand.NewPCG(seed, 0))
	result := make([][]int, 0, count)
	for len(result) < count {
		p := Seq(n)
		rng.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
		if slices.Equal(p, Seq(n)) && n > 1 {
			continue
		}
		result = append(result, p)
	}
	return result
}
