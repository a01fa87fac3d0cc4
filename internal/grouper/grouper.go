// Package grouper partitions ticket records into ticket sheets.
package grouper

import (
	"strings"

	"github.com/ginjaninja78/pega-tickets/internal/types"
)

// Group splits records into groups keyed by GroupKey.
//
// Groups come out in the order their key was first seen and each group keeps
// its records in input order. Records whose key is empty, or only spaces, are
// skipped: they are rows without a ticket number, not errors.
func Group(records []types.TicketRecord) []types.Group {
	index := make(map[string]int)
	var groups []types.Group

	for _, rec := range records {
		key := rec.GroupKey
		if strings.TrimSpace(key) == "" {
			continue
		}

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, types.Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	return groups
}

// Skipped counts the records Group would drop.
func Skipped(records []types.TicketRecord) int {
	n := 0
	for _, rec := range records {
		if strings.TrimSpace(rec.GroupKey) == "" {
			n++
		}
	}
	return n
}

// Keys returns the keys of groups, in order.
func Keys(groups []types.Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}
