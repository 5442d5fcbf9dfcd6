package cluster

import (
	"math"
	"math/rand"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type fit struct {
	centers [][]float64
	labels  []int
	inertia float64
	iters   int
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// nearest returns the closest center to p and the squared distance to it.
// Ties go to the lower center index.
func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centers {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

// seedPlusPlus picks k initial centers with D² weighting.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(x[rng.Intn(len(x))]))
	dist := make([]float64, len(x))
	for i, p := range x {
		dist[i] = sqDist(p, centers[0])
	}
	for len(centers) < k {
		total := floats.Sum(dist)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			next = len(x) - 1
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(x))
		}
		c := clone(x[next])
		centers = append(centers, c)
		for i, p := range x {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

// lloyd runs one k-means fit from a k-means++ start.
func lloyd(x [][]float64, k, maxIter int, tol float64, rng *rand.Rand) fit {
	centers := seedPlusPlus(x, k, rng)
	labels := make([]int, len(x))
	dists := make([]float64, len(x))
	d := len(x[0])
	iters := 0
	for iters < maxIter {
		iters++
		for i, p := range x {
			labels[i], dists[i] = nearest(p, centers)
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, p := range x {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		taken := map[int]bool{}
		for c := range sums {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), sums[c])
				continue
			}
			// Empty cluster: move it onto the point farthest from its center.
			far := -1
			for i := range x {
				if !taken[i] && (far < 0 || dists[i] > dists[far]) {
					far = i
				}
			}
			taken[far] = true
			copy(sums[c], x[far])
			dists[far] = 0
		}
		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], sums[c])
		}
		centers = sums
		if shift <= tol {
			break
		}
	}
	inertia := 0.0
	for i, p := range x {
		var dd float64
		labels[i], dd = nearest(p, centers)
		inertia += dd
	}
	return fit{centers: centers, labels: labels, inertia: inertia, iters: iters}
}

// kmeans runs nInit independent fits concurrently and keeps the one with the
// lowest inertia. Run seeds are drawn up front from seed, so the winner does
// not depend on scheduling.
func kmeans(x [][]float64, k, nInit, maxIter int, tol float64, seed int64) fit {
	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, nInit)
	for i := range seeds {
		seeds[i] = master.Int63()
	}
	abs := tol * meanVariance(x)
	fits := iter.Map(seeds, func(s *int64) fit {
		return lloyd(x, k, maxIter, abs, rand.New(rand.NewSource(*s)))
	})
	best := fits[0]
	for _, f := range fits[1:] {
		if f.inertia < best.inertia {
			best = f
		}
	}
	return best
}

func meanVariance(x [][]float64) float64 {
	d := len(x[0])
	col := make([]float64, len(x))
	total := 0.0
	for j := 0; j < d; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(d)
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
