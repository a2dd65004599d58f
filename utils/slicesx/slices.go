package slicesx

import "math/rand"

func Map[T, U any](s []T, f func(item T, idx int) U) []U {
	mapped := make([]U, len(s))
	for idx, v := range s {
		mapped[idx] = f(v, idx)
	}
	return mapped
}

func Filter[T any](s []T, f func(item T, idx int) bool) []T {
	filtered := []T{}
	for idx, v := range s {
		if f(v, idx) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func Contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Sample returns up to n elements of s drawn without replacement, in random
// order. The input slice is not modified.
func Sample[T any](s []T, n int, rnd *rand.Rand) []T {
	if n >= len(s) {
		n = len(s)
	}
	idxs := rnd.Perm(len(s))[:n]
	sampled := make([]T, n)
	for i, idx := range idxs {
		sampled[i] = s[idx]
	}
	return sampled
}
