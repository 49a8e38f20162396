package smoke

import (
	"fmt"
	"math"
)

const (
	sortDesc = "desc-popularity"
	sortAsc  = "asc-popularity"
)

// verify checks one ranking walked in both orders.
func verify(descMeta []Meta, desc []Item, ascMeta []Meta, asc []Item) error {
	if err := verifyPaging(descMeta, desc); err != nil {
		return fmt.Errorf("desc: %w", err)
	}
	if err := verifyPaging(ascMeta, asc); err != nil {
		return fmt.Errorf("asc: %w", err)
	}
	if len(desc) != len(asc) {
		return fmt.Errorf("%w: desc has %d items, asc has %d", ErrInconsistent, len(desc), len(asc))
	}
	for i := range desc {
		if desc[i].Code != asc[len(asc)-1-i].Code {
			return fmt.Errorf("%w: asc is not the reverse of desc at %d (%s vs %s)",
				ErrInconsistent, i, desc[i].Code, asc[len(asc)-1-i].Code)
		}
	}

	seen := make(map[string]struct{}, len(desc))
	for i, it := range desc {
		if _, dup := seen[it.Code]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInconsistent, it.Code)
		}
		seen[it.Code] = struct{}{}
		if it.Rate < 0 || it.Rate > 1 {
			return fmt.Errorf("%w: %s rate %v out of range", ErrInconsistent, it.Code, it.Rate)
		}
		if scaled := it.Rate * 10000; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			return fmt.Errorf("%w: %s rate %v has more than 4 decimals", ErrInconsistent, it.Code, it.Rate)
		}
		// Displayed rates are truncated, so a later row can only tie or drop.
		if i > 0 && it.Rate > desc[i-1].Rate {
			return fmt.Errorf("%w: %s (%v) ranks below %s (%v)", ErrInconsistent, it.Code, it.Rate, desc[i-1].Code, desc[i-1].Rate)
		}
	}
	return nil
}

// verifyPaging checks that every page agrees on totals and is full except the last.
func verifyPaging(metas []Meta, items []Item) error {
	if len(metas) == 0 {
		return fmt.Errorf("%w: no pages", ErrInconsistent)
	}
	first := metas[0]
	if first.TotalItems != len(items) {
		return fmt.Errorf("%w: totalItems %d but %d items", ErrInconsistent, first.TotalItems, len(items))
	}
	if want := pageCount(first.TotalItems, first.PageSize); first.TotalPages != want {
		return fmt.Errorf("%w: totalPages %d, want %d", ErrInconsistent, first.TotalPages, want)
	}
	for i, m := range metas {
		if m.CurrentPage != i+1 {
			return fmt.Errorf("%w: page %d reports currentPage %d", ErrInconsistent, i+1, m.CurrentPage)
		}
		if m.TotalItems != first.TotalItems || m.TotalPages != first.TotalPages || m.Unit != first.Unit {
			return fmt.Errorf("%w: page %d meta %+v differs from page 1 %+v", ErrInconsistent, i+1, m, first)
		}
	}
	return nil
}

func pageCount(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
