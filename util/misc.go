package util

import (
	"golang.org/x/exp/constraints"
)

func IfThenElse[T any](condition bool, a T, b T) T {
	if condition {
		return a
	}
	return b
}

// Clamp limits v to [lo, hi]. NaN clamps to lo.
func Clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
