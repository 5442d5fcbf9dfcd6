package analysis

import (
	"sort"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/features"
)

type SeverityCount struct {
	Severity features.Severity `json:"severity"`
	Count    int               `json:"count"`
}

// SeverityAnalysis is the label distribution plus two cross-tabulations.
// Every cross-tab row carries all four labels, zero when absent.
type SeverityAnalysis struct {
	Distribution []SeverityCount                      `json:"severity_distribution"`
	ByWeather    map[string]map[features.Severity]int `json:"severity_by_weather"`
	ByLighting   map[string]map[features.Severity]int `json:"severity_by_lighting"`
}

// ComputeSeverityAnalysis tallies the precomputed labels of e.
func ComputeSeverityAnalysis(e *features.Encoded) SeverityAnalysis {
	t := e.Table()
	sa := SeverityAnalysis{
		ByWeather:  map[string]map[features.Severity]int{},
		ByLighting: map[string]map[features.Severity]int{},
	}
	counts := map[features.Severity]int{}
	t.Each(func(i int, r dataset.Record) {
		label := e.Label(i)
		counts[label]++
		crossTab(sa.ByWeather, r.WeatherCondition)[label]++
		crossTab(sa.ByLighting, r.LightingCondition)[label]++
	})

	rank := map[features.Severity]int{}
	for i, s := range features.Severities {
		rank[s] = i
	}
	sa.Distribution = make([]SeverityCount, 0, len(counts))
	for s, c := range counts {
		sa.Distribution = append(sa.Distribution, SeverityCount{Severity: s, Count: c})
	}
	sort.Slice(sa.Distribution, func(i, j int) bool {
		a, b := sa.Distribution[i], sa.Distribution[j]
		if a.Count == b.Count {
			return rank[a.Severity] < rank[b.Severity]
		}
		return a.Count > b.Count
	})
	return sa
}

func crossTab(m map[string]map[features.Severity]int, key string) map[features.Severity]int {
	row, ok := m[key]
	if !ok {
		row = make(map[features.Severity]int, len(features.Severities))
		for _, s := range features.Severities {
			row[s] = 0
		}
		m[key] = row
	}
	return row
}
