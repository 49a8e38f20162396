package ranking

import "fmt"

// Sort is the public ranking order.
type Sort string

const (
	SortDesc Sort = "desc-popularity"
	SortAsc  Sort = "asc-popularity"
)

// ParseSort validates a sort query value. An absent value means SortDesc.
func ParseSort(raw string, present bool) (Sort, error) {
	if !present {
		return SortDesc, nil
	}
	switch s := Sort(raw); s {
	case SortDesc, SortAsc:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, raw)
	}
}

// Ordered returns keys in the requested order. keys are descending; the
// ascending order is a reversed copy so the cached list is never mutated.
func Ordered(keys []string, s Sort) []string {
	if s != SortAsc {
		return keys
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k
	}
	return out
}
