// Package ident provides small identifier-hashing and string-similarity
// helpers shared by the bef and diag packages. Adapted from the
// teacher's internal/engine/utils.go, repurposed from C67 symbol
// hashing/"did you mean" matching to entity-table key hashing and
// undefined-symbol suggestions.
package ident

import "hash/fnv"

// HashKey hashes s to a uint64 suitable for use as a fast secondary
// lookup key (e.g. a pre-check before a full string comparison in a
// large kernel-opcode table). Uses FNV-1a, same as the teacher.
func HashKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// LevenshteinDistance computes the edit distance between two strings.
// bef's entity collector uses this to suggest a likely intended symbol
// name when a SymbolRefAttr names an undefined function (spec.md §8
// scenario 6: "function @missing not defined").
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(s1)][len(s2)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// ClosestMatch returns the candidate closest to target by edit distance,
// or "" if candidates is empty or nothing is within maxDistance.
func ClosestMatch(target string, candidates []string, maxDistance int) string {
	best := ""
	bestDist := maxDistance + 1
	for _, c := range candidates {
		d := LevenshteinDistance(target, c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist > maxDistance {
		return ""
	}
	return best
}
