package rules

import (
	"sort"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

// ItemFields are the categorical columns turned into items.
var ItemFields = []dataset.Field{
	dataset.WeatherCondition,
	dataset.LightingCondition,
	dataset.FirstCrashType,
	dataset.TrafficControlDevice,
	dataset.RoadwaySurfaceCond,
}

// LevelsPerField caps how many values of each item field become items.
const LevelsPerField = 4

// Outcome flag item names.
const (
	HighInjury       = "high_injury"
	FatalAccident    = "fatal_accident"
	MultipleVehicles = "multiple_vehicles"
)

// Item is one boolean attribute of a transaction.
type Item struct {
	Name string
	// Field is the source column, empty for outcome flags.
	Field dataset.Field
	// Value is the matched category, empty for outcome flags.
	Value string
}

func (it Item) outcome() bool { return it.Field == "" }

// transactions holds one bitmask per record over items.
type transactions struct {
	items []Item
	rows  []uint64
}

// buildTransactions one-hot encodes the top levels of every ItemField (the
// Unknown placeholder is never an item) and appends the three outcome flags.
func buildTransactions(t *dataset.Table) transactions {
	var tx transactions
	for _, f := range ItemFields {
		for _, v := range topLevels(t.Column(f), LevelsPerField) {
			tx.items = append(tx.items, Item{Name: string(f) + "_" + v, Field: f, Value: v})
		}
	}
	tx.items = append(tx.items, Item{Name: HighInjury}, Item{Name: FatalAccident}, Item{Name: MultipleVehicles})

	tx.rows = make([]uint64, t.Len())
	t.Each(func(i int, r dataset.Record) {
		var mask uint64
		for j, it := range tx.items {
			var hit bool
			switch it.Name {
			case HighInjury:
				hit = r.InjuriesTotal.Valid && r.InjuriesTotal.Value >= 2
			case FatalAccident:
				hit = r.InjuriesFatal.Positive()
			case MultipleVehicles:
				hit = r.NumUnits.Valid && r.NumUnits.Value > 1
			default:
				hit = r.Get(it.Field) == it.Value
			}
			if hit {
				mask |= 1 << uint(j)
			}
		}
		tx.rows[i] = mask
	})
	return tx
}

func topLevels(values []string, n int) []string {
	counts := map[string]int{}
	for _, v := range values {
		if v != dataset.Unknown {
			counts[v]++
		}
	}
	levels := make([]string, 0, len(counts))
	for v := range counts {
		levels = append(levels, v)
	}
	sort.Slice(levels, func(i, j int) bool {
		if counts[levels[i]] == counts[levels[j]] {
			return levels[i] < levels[j]
		}
		return counts[levels[i]] > counts[levels[j]]
	})
	if len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// names lists the item names in mask, in item order.
func (tx transactions) names(mask uint64) []string {
	var out []string
	for j, it := range tx.items {
		if mask&(1<<uint(j)) != 0 {
			out = append(out, it.Name)
		}
	}
	return out
}

func (tx transactions) members(mask uint64) []Item {
	var out []Item
	for j, it := range tx.items {
		if mask&(1<<uint(j)) != 0 {
			out = append(out, it)
		}
	}
	return out
}
