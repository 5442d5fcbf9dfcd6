package rules

import (
	"math/bits"
	"sort"
)

// support counts how many rows contain every item of mask.
func (tx transactions) support(mask uint64) int {
	n := 0
	for _, row := range tx.rows {
		if row&mask == mask {
			n++
		}
	}
	return n
}

// frequentItemsets runs level-wise apriori and returns the support fraction
// of every itemset whose support is at least minSupport.
func frequentItemsets(tx transactions, minSupport float64) map[uint64]float64 {
	out := map[uint64]float64{}
	total := float64(len(tx.rows))
	if total == 0 {
		return out
	}
	var level []uint64
	for j := range tx.items {
		mask := uint64(1) << uint(j)
		if s := float64(tx.support(mask)) / total; s >= minSupport {
			out[mask] = s
			level = append(level, mask)
		}
	}
	for len(level) > 1 {
		sort.Slice(level, func(i, j int) bool { return level[i] < level[j] })
		seen := map[uint64]bool{}
		var next []uint64
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				cand := level[i] | level[j]
				if bits.OnesCount64(cand) != bits.OnesCount64(level[i])+1 || seen[cand] {
					continue
				}
				seen[cand] = true
				if !allSubsetsFrequent(cand, out) {
					continue
				}
				if s := float64(tx.support(cand)) / total; s >= minSupport {
					out[cand] = s
					next = append(next, cand)
				}
			}
		}
		level = next
	}
	return out
}

func allSubsetsFrequent(mask uint64, frequent map[uint64]float64) bool {
	for rest := mask; rest != 0; rest &= rest - 1 {
		bit := rest & -rest
		if _, ok := frequent[mask&^bit]; !ok {
			return false
		}
	}
	return true
}
