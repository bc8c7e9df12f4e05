// Package feed merges provider results into one time-sorted feed.
package feed

import (
	"sort"

	"github.com/seenimoa/kospifeed/pkg/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 200
)

// ClampLimit maps a requested limit to [1, MaxLimit], using DefaultLimit
// for zero or negative values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Aggregate concatenates groups in order, sorts newest first (events
// without a timestamp last, ties keep their input order) and keeps the
// first ClampLimit(limit). Events missing a type, title or url are
// dropped. The result is never nil.
func Aggregate(limit int, groups ...[]models.Event) []models.Event {
	var n int
	for _, g := range groups {
		n += len(g)
	}
	all := make([]models.Event, 0, n)
	for _, g := range groups {
		for _, ev := range g {
			if ev.Valid() {
				all = append(all, ev)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	if keep := ClampLimit(limit); len(all) > keep {
		all = all[:keep]
	}
	return all
}
