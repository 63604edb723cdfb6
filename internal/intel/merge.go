package intel

// MergeMatches unions existing matches with newly expanded ones,
// deduplicating by id. When an id recurs the higher-scoring copy wins;
// equal scores keep the first-seen copy. Relative order of surviving
// matches follows first appearance.
func MergeMatches(existing, expanded []ResultItem) []ResultItem {
	best := make(map[string]int, len(existing)+len(expanded))
	out := make([]ResultItem, 0, len(existing)+len(expanded))

	for _, lists := range [][]ResultItem{existing, expanded} {
		for _, m := range lists {
			idx, seen := best[m.ID]
			if !seen {
				best[m.ID] = len(out)
				out = append(out, m)
				continue
			}
			if m.Metrics.Score > out[idx].Metrics.Score {
				out[idx] = m
			}
		}
	}
	return out
}
