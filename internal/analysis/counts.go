package analysis

import (
	"sort"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

// CategoryCount is one level of a categorical column and its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// countValues tallies a text column and returns levels sorted by count desc,
// then value asc.
func countValues(values []string) []CategoryCount {
	counts := make(map[string]int, 32)
	for _, v := range values {
		counts[v]++
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	return tops
}

// TopValues returns the n most frequent levels of f.
func TopValues(t *dataset.Table, f dataset.Field, n int) []CategoryCount {
	tops := countValues(t.Column(f))
	if n > 0 && len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// Mode returns the most frequent level of f; ties go to the smaller value.
func Mode(t *dataset.Table, f dataset.Field) string {
	tops := countValues(t.Column(f))
	if len(tops) == 0 {
		return ""
	}
	return tops[0].Value
}

type intCount struct {
	Key   int
	Count int
}

// countInts buckets the valid values of a numeric column by their integer
// part, sorted by key ascending.
func countInts(nums []dataset.Number) []intCount {
	counts := map[int]int{}
	for _, n := range nums {
		if k, ok := n.Int(); ok {
			counts[k]++
		}
	}
	out := make([]intCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, intCount{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
