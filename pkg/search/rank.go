package search

import (
	"cmp"
	"slices"
	"strings"
)

// comparators maps every SortField to its ascending comparison.
var comparators = map[SortField]func(a, b Repository) int{
	SortName: func(a, b Repository) int {
		return strings.Compare(a.Name, b.Name)
	},
	SortPopularity: func(a, b Repository) int {
		return cmp.Compare(a.Stars, b.Stars)
	},
	SortActivity: func(a, b Repository) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	},
}

// dedupe drops every repository whose ID was already seen.
// The first occurrence wins, so callers must pass items in page order.
func dedupe(items []Repository) []Repository {
	seen := make(map[int64]struct{}, len(items))
	out := make([]Repository, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// rank sorts items in place. The sort is stable, so equal keys keep
// their merge order in both directions.
func rank(items []Repository, field SortField, order SortOrder) {
	compare, ok := comparators[field]
	if !ok {
		compare = comparators[SortName]
	}
	if order == OrderDesc {
		asc := compare
		compare = func(a, b Repository) int { return asc(b, a) }
	}
	slices.SortStableFunc(items, compare)
}

// paginate returns items[(page-1)*perPage : page*perPage], clamped to the
// slice bounds. Out-of-range pages yield an empty, non-nil slice.
func paginate(items []Repository, perPage, page int) []Repository {
	if perPage < 1 || page < 1 {
		return []Repository{}
	}
	// compare page counts first so (page-1)*perPage cannot overflow
	pages := len(items) / perPage
	if len(items)%perPage != 0 {
		pages++
	}
	if page > pages {
		return []Repository{}
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(items))
	out := make([]Repository, end-start)
	copy(out, items[start:end])
	return out
}

// pagesNeeded returns how many remote pages cover min(total, ceiling)
// items, capped at maxPages.
func pagesNeeded(total, ceiling, pageSize, maxPages int) int {
	capped := min(total, ceiling)
	if capped <= 0 || pageSize <= 0 {
		return 1
	}
	n := (capped + pageSize - 1) / pageSize
	return min(n, maxPages)
}
