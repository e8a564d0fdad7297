// Package attribution implements the multi-tier waterfall that assigns
// advertising identifiers to customers.
package attribution

import (
	"sort"

	"github.com/radiusdt/roas-attribution/internal/models"
)

// Finalize applies the shared candidate rules for a tier's raw output:
// order by timestamp descending, drop candidates with no identifier,
// deduplicate by ad id and then by timestamp. Ordering happens before the
// dedup passes, so the kept instance of a duplicated ad id is the most
// recent one. The sort is stable to keep within-timestamp input order
// deterministic across runs.
func Finalize(candidates []models.AdCandidate) []models.AdCandidate {
	out := make([]models.AdCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.AdID != "" {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	out = dedupByAdID(out)
	return dedupByTimestamp(out)
}

// dedupByAdID keeps the first occurrence of each ad id.
func dedupByAdID(candidates []models.AdCandidate) []models.AdCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c.AdID]; dup {
			continue
		}
		seen[c.AdID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// dedupByTimestamp keeps the first occurrence of each timestamp. Distinct
// ad ids sharing an exact second are treated as one click seen through
// two trackers.
func dedupByTimestamp(candidates []models.AdCandidate) []models.AdCandidate {
	seen := make(map[int64]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c.Timestamp]; dup {
			continue
		}
		seen[c.Timestamp] = struct{}{}
		out = append(out, c)
	}
	return out
}

// uniqStrings deduplicates non-empty strings preserving first-seen order.
func uniqStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
