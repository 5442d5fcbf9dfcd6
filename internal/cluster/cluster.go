// Package cluster groups accidents with k-means over standardized
// condition, time and injury features and describes each group.
package cluster

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/features"
)

// ErrInvalidK is returned when the cluster count is below 2 or above the
// number of usable rows.
var ErrInvalidK = errors.New("invalid cluster count")

// ErrNoRows is returned when no row has every clustering feature.
var ErrNoRows = errors.New("no complete rows to cluster")

// Options tunes the pipeline. Zero fields take the defaults from DefaultOptions.
type Options struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
	MaxRows int
}

func DefaultOptions() Options {
	return Options{K: 5, Seed: 42, NInit: 20, MaxIter: 500, Tol: 1e-4, MaxRows: 50000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Seed == 0 {
		o.Seed = d.Seed
	}
	if o.NInit <= 0 {
		o.NInit = d.NInit
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Tol <= 0 {
		o.Tol = d.Tol
	}
	if o.MaxRows <= 0 {
		o.MaxRows = d.MaxRows
	}
	return o
}

// Result is the clustering response.
type Result struct {
	Algorithm      string             `json:"algorithm"`
	NClusters      int                `json:"n_clusters"`
	TotalAccidents int                `json:"total_accidents"`
	Inertia        float64            `json:"inertia"`
	Clusters       map[string]Summary `json:"cluster_analysis"`
	Centers        [][]float64        `json:"cluster_centers"`
	FeatureNames   []string           `json:"feature_names"`
	Sampled        bool               `json:"sampled"`
	Note           string             `json:"note,omitempty"`
	Iterations     int                `json:"iterations"`
}

// Run clusters the complete rows of e into opt.K groups. Centers are
// reported in standardized feature space.
func Run(e *features.Encoded, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	if opt.K < 2 {
		return nil, fmt.Errorf("%w: %d (must be at least 2)", ErrInvalidK, opt.K)
	}
	x, rows := e.Matrix(features.ClusterFeatures)
	if len(x) == 0 {
		return nil, ErrNoRows
	}
	res := &Result{
		Algorithm:    "K-Means",
		NClusters:    opt.K,
		FeatureNames: features.Names(features.ClusterFeatures),
		Clusters:     make(map[string]Summary, opt.K),
	}
	if len(x) > opt.MaxRows {
		x, rows = subsample(x, rows, opt.MaxRows, opt.Seed)
		res.Sampled = true
		res.Note = fmt.Sprintf("clustered a fixed-seed sample of %d rows; results approximate the full dataset", opt.MaxRows)
	}
	if opt.K > len(x) {
		return nil, fmt.Errorf("%w: %d (only %d usable rows)", ErrInvalidK, opt.K, len(x))
	}

	z := FitScaler(x).Transform(x)
	best := kmeans(z, opt.K, opt.NInit, opt.MaxIter, opt.Tol, opt.Seed)
	res.TotalAccidents = len(x)
	res.Inertia = best.inertia
	res.Centers = best.centers
	res.Iterations = best.iters

	groups := make([][]member, opt.K)
	t := e.Table()
	for i, label := range best.labels {
		r := t.At(rows[i])
		groups[label] = append(groups[label], memberOf(r))
	}
	for c, g := range groups {
		res.Clusters[fmt.Sprintf("cluster_%d", c)] = summarize(c, g, len(x))
	}
	return res, nil
}

func memberOf(r dataset.Record) member {
	h, _ := r.CrashHour.Int()
	p, _ := r.CrashDayOfWeek.Int()
	m, _ := r.CrashMonth.Int()
	return member{hour: h, period: p, month: m, injuries: r.InjuriesTotal.Value}
}

// subsample draws n rows without replacement, keeping source order.
func subsample(x [][]float64, rows []int, n int, seed int64) ([][]float64, []int) {
	pick := rand.New(rand.NewSource(seed)).Perm(len(x))[:n]
	sort.Ints(pick)
	xs := make([][]float64, n)
	rs := make([]int, n)
	for i, p := range pick {
		xs[i] = x[p]
		rs[i] = rows[p]
	}
	return xs, rs
}
