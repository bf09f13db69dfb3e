package domain

import "sort"

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags counts tag occurrences across sets and returns the n most frequent.
// Equal counts keep the order in which the tags were first encountered.
func TopTags(sets [][]string, n int) []TagCount {
	index := make(map[string]int)
	var counts []TagCount
	for _, set := range sets {
		for _, tag := range set {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	if counts == nil {
		return []TagCount{}
	}
	return counts
}

func tagNames(counts []TagCount) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Tag
	}
	return out
}
