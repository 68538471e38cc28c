package domain

import (
	"fmt"
	"sort"
	"strings"
)

type SortBy string

const (
	SortByName      SortBy = "name"
	SortByDateAdded SortBy = "dateAdded"
)

// AllRegions matches every region in a ReserveFilter.
const AllRegions = "all"

func ParseSort(s string) (SortBy, error) {
	switch SortBy(s) {
	case "", SortByName:
		return SortByName, nil
	case SortByDateAdded:
		return SortByDateAdded, nil
	}
	return "", &ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", s)}
}

type ReserveFilter struct {
	Query  string
	Region string
	Sort   SortBy
}

// FilterReserves keeps reserves whose name contains Query (case-insensitive)
// and whose region equals Region, then orders them by Sort. The input slice
// is not modified.
func FilterReserves(in []ReserveView, f ReserveFilter) []ReserveView {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]ReserveView, 0, len(in))
	for _, r := range in {
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) {
			continue
		}
		if f.Region != "" && f.Region != AllRegions && r.Region != f.Region {
			continue
		}
		out = append(out, r)
	}

	switch f.Sort {
	case SortByDateAdded:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case SortByName, "":
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}

// UniqueRegions collapses duplicates keeping first-seen order.
func UniqueRegions(regions []string) []string {
	seen := make(map[string]struct{}, len(regions))
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
