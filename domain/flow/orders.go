package flow

import (
	"sort"

	"taskline/bizerror"
)

// ValidateOrder checks candidate against the order numbers already used in a workflow.
// The merged set must be a run of consecutive numbers starting at 1.
func ValidateOrder(existing []int, candidate int) error {
	if candidate < 1 {
		return bizerror.ErrInvalidOrder
	}
	merged := make([]int, 0, len(existing)+1)
	for _, o := range existing {
		if o == candidate {
			return bizerror.ErrInvalidOrder
		}
		merged = append(merged, o)
	}
	merged = append(merged, candidate)
	sort.Ints(merged)

	if merged[0] != 1 {
		return bizerror.ErrInvalidOrder
	}
	for i := 1; i < len(merged); i++ {
		if merged[i]-merged[i-1] != 1 {
			return bizerror.ErrInvalidOrder
		}
	}
	return nil
}
