package classify

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
)

const (
	featureEpsilon  = 1e-7
	impurityEpsilon = 1e-12
)

// TreeOptions mirrors the usual CART stopping rules. MinImpurityDecrease is
// measured as a fraction of the total training weight. Zero values mean no
// limit (MaxDepth, MaxLeafNodes, MaxFeatures) or the smallest legal value.
type TreeOptions struct {
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
	MaxLeafNodes        int
	MaxFeatures         int
	Seed                int64
}

// Node is one tree node. Feature is -1 for leaves. Value holds the weighted
// class counts that reached the node.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Depth     int
	Samples   int
	Weight    float64
	Impurity  float64
	Value     []float64
}

// IsLeaf reports whether n has no split.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a fitted CART classifier. Samples go left when x[Feature] <= Threshold.
type Tree struct {
	Nodes       []Node
	NClasses    int
	NFeatures   int
	importances []float64
}

type split struct {
	feature     int
	threshold   float64
	left, right []int
	// decrease is wN*imp - wL*impL - wR*impR.
	decrease float64
}

type frontier struct {
	node  int
	split split
	// gain is the decrease normalized by the total training weight.
	gain float64
}

type frontierHeap []*frontier

func (h frontierHeap) Len() int { return len(h) }
func (h frontierHeap) Less(i, j int) bool {
	if h[i].gain == h[j].gain {
		return h[i].node < h[j].node
	}
	return h[i].gain > h[j].gain
}
func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *frontierHeap) Push(x interface{}) { *h = append(*h, x.(*frontier)) }
func (h *frontierHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

type builder struct {
	x        [][]float64
	y        []int
	w        []float64
	nClasses int
	opt      TreeOptions
	rng      *rand.Rand
	totalW   float64
	tree     *Tree
}

// FitTree grows a tree best-first: the frontier node whose split removes the
// most impurity is expanded next until no split qualifies or MaxLeafNodes is
// reached. Rows with zero weight are ignored.
func FitTree(x [][]float64, y []int, w []float64, nClasses int, opt TreeOptions) *Tree {
	d := 0
	if len(x) > 0 {
		d = len(x[0])
	}
	if opt.MinSamplesSplit < 2 {
		opt.MinSamplesSplit = 2
	}
	if opt.MinSamplesLeaf < 1 {
		opt.MinSamplesLeaf = 1
	}
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = math.MaxInt32
	}
	if opt.MaxFeatures <= 0 || opt.MaxFeatures > d {
		opt.MaxFeatures = d
	}
	b := &builder{
		x:        x,
		y:        y,
		w:        w,
		nClasses: nClasses,
		opt:      opt,
		rng:      rand.New(rand.NewSource(opt.Seed)),
		tree:     &Tree{NClasses: nClasses, NFeatures: d, importances: make([]float64, d)},
	}
	var idx []int
	for i := range y {
		if w[i] > 0 {
			idx = append(idx, i)
			b.totalW += w[i]
		}
	}

	h := &frontierHeap{}
	if f := b.addNode(idx, 0); f != nil {
		heap.Push(h, f)
	}
	leaves := 1
	for h.Len() > 0 {
		if opt.MaxLeafNodes > 0 && leaves >= opt.MaxLeafNodes {
			break
		}
		f := heap.Pop(h).(*frontier)
		depth := b.tree.Nodes[f.node].Depth
		lf := b.addNode(f.split.left, depth+1)
		left := len(b.tree.Nodes) - 1
		rf := b.addNode(f.split.right, depth+1)
		right := len(b.tree.Nodes) - 1

		n := &b.tree.Nodes[f.node]
		n.Feature = f.split.feature
		n.Threshold = f.split.threshold
		n.Left, n.Right = left, right
		b.tree.importances[f.split.feature] += f.split.decrease
		leaves++

		if lf != nil {
			heap.Push(h, lf)
		}
		if rf != nil {
			heap.Push(h, rf)
		}
	}

	total := 0.0
	for _, v := range b.tree.importances {
		total += v
	}
	if total > 0 {
		for i := range b.tree.importances {
			b.tree.importances[i] /= total
		}
	}
	return b.tree
}

// addNode appends a leaf for idx and returns its best split, or nil when the
// node must stay a leaf.
func (b *builder) addNode(idx []int, depth int) *frontier {
	value := make([]float64, b.nClasses)
	weight := 0.0
	for _, i := range idx {
		value[b.y[i]] += b.w[i]
		weight += b.w[i]
	}
	imp := gini(value, weight)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Depth:    depth,
		Samples:  len(idx),
		Weight:   weight,
		Impurity: imp,
		Value:    value,
	})
	node := len(b.tree.Nodes) - 1

	if depth >= b.opt.MaxDepth ||
		len(idx) < b.opt.MinSamplesSplit ||
		len(idx) < 2*b.opt.MinSamplesLeaf ||
		imp <= impurityEpsilon {
		return nil
	}
	s, ok := b.bestSplit(idx, value, weight, imp)
	if !ok {
		return nil
	}
	gain := s.decrease / b.totalW
	if gain+impurityEpsilon < b.opt.MinImpurityDecrease {
		return nil
	}
	return &frontier{node: node, split: s, gain: gain}
}

func (b *builder) bestSplit(idx []int, total []float64, weight, imp float64) (split, bool) {
	best := split{feature: -1}
	bestProxy := math.Inf(-1)
	bestPos := 0
	order := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	minLeaf := b.opt.MinSamplesLeaf

	evaluated := 0
	for _, f := range b.rng.Perm(len(b.x[0])) {
		if evaluated >= b.opt.MaxFeatures {
			break
		}
		copy(order, idx)
		b.sortBy(order, f)
		lo, hi := b.x[order[0]][f], b.x[order[len(order)-1]][f]
		if hi <= lo+featureEpsilon {
			continue
		}
		evaluated++

		for c := range left {
			left[c] = 0
		}
		wl := 0.0
		for p := 1; p < len(order); p++ {
			i := order[p-1]
			left[b.y[i]] += b.w[i]
			wl += b.w[i]
			if b.x[order[p]][f] <= b.x[i][f]+featureEpsilon {
				continue
			}
			if p < minLeaf || len(order)-p < minLeaf {
				continue
			}
			wr := weight - wl
			for c := range right {
				right[c] = total[c] - left[c]
			}
			proxy := -wl*gini(left, wl) - wr*gini(right, wr)
			if proxy > bestProxy+impurityEpsilon {
				bestProxy = proxy
				bestPos = p
				a, c := b.x[i][f], b.x[order[p]][f]
				thr := a/2 + c/2
				if thr == c || math.IsInf(thr, 0) {
					thr = a
				}
				best.feature = f
				best.threshold = thr
			}
		}
	}
	if best.feature < 0 {
		return best, false
	}

	copy(order, idx)
	b.sortBy(order, best.feature)
	best.left = append([]int(nil), order[:bestPos]...)
	best.right = append([]int(nil), order[bestPos:]...)
	best.decrease = weight*imp + bestProxy
	return best, true
}

func (b *builder) sortBy(order []int, f int) {
	sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })
}

// gini is 1 - sum(p_c^2) over weighted class counts.
func gini(counts []float64, weight float64) float64 {
	if weight <= 0 {
		return 0
	}
	s := 0.0
	for _, c := range counts {
		p := c / weight
		s += p * p
	}
	return 1 - s
}

// leaf returns the leaf reached by x.
func (t *Tree) leaf(x []float64) Node {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}

// Proba returns the class distribution of the leaf reached by x.
func (t *Tree) Proba(x []float64) []float64 {
	n := t.leaf(x)
	out := make([]float64, t.NClasses)
	if n.Weight > 0 {
		for c, v := range n.Value {
			out[c] = v / n.Weight
		}
	}
	return out
}

// Predict returns the most probable class; ties go to the lower index.
func (t *Tree) Predict(x []float64) int { return argmax(t.Proba(x)) }

// Importances returns the normalized impurity decrease per feature.
func (t *Tree) Importances() []float64 {
	out := make([]float64, len(t.importances))
	copy(out, t.importances)
	return out
}

// Depth is the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	d := 0
	for _, n := range t.Nodes {
		if n.Depth > d {
			d = n.Depth
		}
	}
	return d
}

// Leaves counts leaf nodes.
func (t *Tree) Leaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
