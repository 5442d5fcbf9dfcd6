package classify

import (
	"math"
	"math/rand"

	"github.com/sourcegraph/conc/iter"
)

// ForestOptions configures the bagged ensemble. MaxFeatures 0 means
// floor(sqrt(features)).
type ForestOptions struct {
	NTrees      int
	MaxDepth    int
	MaxFeatures int
	Seed        int64
}

// Forest is a set of trees fit on bootstrap resamples.
type Forest struct {
	Trees    []*Tree
	NClasses int
	MaxDepth int
}

// FitForest trains opt.NTrees trees concurrently. Each tree draws its
// bootstrap sample and feature subsets from its own seed, taken in order from
// opt.Seed, so the ensemble is the same on every run. classWeight scales each
// row's bootstrap multiplicity.
func FitForest(x [][]float64, y []int, classWeight []float64, nClasses int, opt ForestOptions) *Forest {
	if opt.NTrees <= 0 {
		opt.NTrees = 100
	}
	maxF := opt.MaxFeatures
	if maxF <= 0 && len(x) > 0 {
		maxF = int(math.Sqrt(float64(len(x[0]))))
		if maxF < 1 {
			maxF = 1
		}
	}
	master := rand.New(rand.NewSource(opt.Seed))
	seeds := make([]int64, opt.NTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}
	trees := iter.Map(seeds, func(seed *int64) *Tree {
		rng := rand.New(rand.NewSource(*seed))
		w := make([]float64, len(y))
		for range y {
			w[rng.Intn(len(y))]++
		}
		for i, c := range y {
			w[i] *= classWeight[c]
		}
		return FitTree(x, y, w, nClasses, TreeOptions{
			MaxDepth:    opt.MaxDepth,
			MaxFeatures: maxF,
			Seed:        rng.Int63(),
		})
	})
	return &Forest{Trees: trees, NClasses: nClasses, MaxDepth: opt.MaxDepth}
}

// Proba averages the leaf distributions of every tree.
func (f *Forest) Proba(x []float64) []float64 {
	out := make([]float64, f.NClasses)
	for _, t := range f.Trees {
		for c, p := range t.Proba(x) {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

func (f *Forest) Predict(x []float64) int { return argmax(f.Proba(x)) }

// Importances averages the importances of the trees that split at least
// once, renormalized to sum to 1.
func (f *Forest) Importances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	out := make([]float64, f.Trees[0].NFeatures)
	used := 0
	for _, t := range f.Trees {
		if len(t.Nodes) <= 1 {
			continue
		}
		used++
		for i, v := range t.importances {
			out[i] += v
		}
	}
	if used == 0 {
		return out
	}
	total := 0.0
	for i := range out {
		out[i] /= float64(used)
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
