package classify

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit holds out about testFrac of every class. A class with at
// least two rows keeps at least one row on each side. Returned indices are
// ascending.
func StratifiedSplit(y []int, nClasses int, testFrac float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	byClass := make([][]int, nClasses)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	for _, idx := range byClass {
		n := len(idx)
		if n == 0 {
			continue
		}
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		k := int(math.Round(float64(n) * testFrac))
		if n >= 2 {
			if k == 0 {
				k = 1
			}
			if k == n {
				k = n - 1
			}
		} else {
			k = 0
		}
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// BalancedWeights returns w_c = n / (k * n_c) for every class present in y.
// Absent classes get weight 0.
func BalancedWeights(y []int, nClasses int) []float64 {
	counts := make([]int, nClasses)
	for _, c := range y {
		counts[c]++
	}
	present := 0
	for _, n := range counts {
		if n > 0 {
			present++
		}
	}
	w := make([]float64, nClasses)
	for c, n := range counts {
		if n > 0 {
			w[c] = float64(len(y)) / (float64(present) * float64(n))
		}
	}
	return w
}
