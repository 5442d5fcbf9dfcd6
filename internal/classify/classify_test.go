package classify

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/features"
)

func separable(n int) ([][]float64, []int, []float64) {
	x := make([][]float64, n)
	y := make([]int, n)
	w := make([]float64, n)
	for i := range x {
		x[i] = []float64{float64(i)}
		if i >= n/2 {
			y[i] = 1
		}
		w[i] = 1
	}
	return x, y, w
}

func TestFitTreeSeparable(t *testing.T) {
	x, y, w := separable(100)
	tree := FitTree(x, y, w, 2, TreeOptions{})
	root := tree.Nodes[0]
	if root.IsLeaf() || root.Threshold != 49.5 {
		t.Fatalf("expected root split at 49.5, got %+v", root)
	}
	if tree.Predict([]float64{10}) != 0 || tree.Predict([]float64{80}) != 1 {
		t.Fatalf("unexpected predictions")
	}
	if imp := tree.Importances(); imp[0] != 1 {
		t.Fatalf("single feature should carry all importance, got %v", imp)
	}
	if tree.Leaves() != 2 || tree.Depth() != 1 {
		t.Fatalf("expected a stump, got %d leaves depth %d", tree.Leaves(), tree.Depth())
	}
}

func noisy(n int) ([][]float64, []int, []float64) {
	x := make([][]float64, n)
	y := make([]int, n)
	w := make([]float64, n)
	for i := range x {
		a, b := float64(i%17), float64((i*7)%23)
		x[i] = []float64{a, b}
		y[i] = (i%17 + (i*7)%23) % 3
		w[i] = 1
	}
	return x, y, w
}

func TestFitTreeLimits(t *testing.T) {
	x, y, w := noisy(600)
	tree := FitTree(x, y, w, 3, TreeOptions{MaxDepth: 4, MinSamplesLeaf: 30, MaxLeafNodes: 5})
	if tree.Leaves() > 5 {
		t.Fatalf("expected at most 5 leaves, got %d", tree.Leaves())
	}
	if tree.Depth() > 4 {
		t.Fatalf("expected depth <= 4, got %d", tree.Depth())
	}
	for i, n := range tree.Nodes {
		if n.IsLeaf() && n.Samples < 30 {
			t.Fatalf("leaf %d has %d samples", i, n.Samples)
		}
	}
	sum := 0.0
	for _, v := range tree.Importances() {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances should sum to 1, got %v", sum)
	}

	stump := FitTree(x, y, w, 3, TreeOptions{MinImpurityDecrease: 0.9})
	if len(stump.Nodes) != 1 {
		t.Fatalf("large min impurity decrease should keep a single leaf, got %d nodes", len(stump.Nodes))
	}
}

func TestStratifiedSplit(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 2}
	train, test := StratifiedSplit(y, 3, 0.2, 42)
	if len(train)+len(test) != len(y) {
		t.Fatalf("split lost rows: %d + %d", len(train), len(test))
	}
	perClass := map[int]int{}
	for _, i := range test {
		perClass[y[i]]++
	}
	if perClass[0] != 2 || perClass[1] != 1 || perClass[2] != 0 {
		t.Fatalf("unexpected test allocation %v", perClass)
	}
	a, b := StratifiedSplit(y, 3, 0.2, 42)
	if !reflect.DeepEqual(a, train) || !reflect.DeepEqual(b, test) {
		t.Fatalf("split is not deterministic")
	}
}

func TestBalancedWeights(t *testing.T) {
	w := BalancedWeights([]int{0, 0, 0, 1}, 3)
	if math.Abs(w[0]-4.0/6) > 1e-12 || w[1] != 2 || w[2] != 0 {
		t.Fatalf("unexpected weights %v", w)
	}
}

func TestMetrics(t *testing.T) {
	yTrue := []string{"A", "A", "B", "B", "C"}
	yPred := []string{"A", "B", "B", "B", "A"}
	labels := []string{"A", "B", "C"}
	cm := ConfusionMatrix(yTrue, yPred, labels)
	want := [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 0}}
	if !reflect.DeepEqual(cm, want) {
		t.Fatalf("confusion matrix %v, want %v", cm, want)
	}
	r := NewClassificationReport(yTrue, yPred, labels)
	if r.Accuracy != 0.6 {
		t.Fatalf("accuracy %v", r.Accuracy)
	}
	b := r.PerClass[1]
	if math.Abs(b.Precision-2.0/3) > 1e-12 || b.Recall != 1 || b.Support != 2 {
		t.Fatalf("unexpected B metrics %+v", b)
	}
	if c := r.PerClass[2]; c.Precision != 0 || c.F1 != 0 {
		t.Fatalf("undefined metrics should be 0, got %+v", c)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"A":{`, `"accuracy":0.6`, `"macro avg"`, `"weighted avg"`, `"f1-score"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("report JSON missing %s: %s", key, raw)
		}
	}
}

func TestExportText(t *testing.T) {
	x, y, w := separable(100)
	tree := FitTree(x, y, w, 2, TreeOptions{})
	got, err := ExportText(tree, []string{"crash_hour"}, []string{"A", "B"}, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := "|--- crash_hour <= 49.50\n|   |--- class: A\n|--- crash_hour >  49.50\n|   |--- class: B\n"
	if got != want {
		t.Fatalf("unexpected export:\n%s\nwant:\n%s", got, want)
	}
	if _, err := ExportText(tree, []string{"a", "b"}, []string{"A", "B"}, 6); err == nil {
		t.Fatalf("expected error for mismatched feature names")
	}

	deep := &Tree{NClasses: 2, NFeatures: 1, Nodes: []Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2, Value: []float64{2, 2}},
		{Feature: -1, Depth: 1, Value: []float64{1, 0}},
		{Feature: 0, Threshold: 3, Left: 3, Right: 4, Depth: 1, Value: []float64{1, 2}},
		{Feature: -1, Depth: 2, Value: []float64{1, 0}},
		{Feature: -1, Depth: 2, Value: []float64{0, 2}},
	}}
	got, _ = ExportText(deep, []string{"f"}, []string{"A", "B"}, 0)
	if !strings.Contains(got, "|   |--- truncated branch of depth 2") {
		t.Fatalf("expected truncated branch, got:\n%s", got)
	}
}

func TestExportDOT(t *testing.T) {
	x, y, w := separable(40)
	tree := FitTree(x, y, w, 2, TreeOptions{})
	dot := ExportDOT(tree, []string{"Hour of Day\n(Rush)"}, []string{"A", "B"}, 6)
	for _, want := range []string{"digraph Tree {", `Hour of Day\n(Rush) <= 19.50`, `headlabel="True"`, `class = B`} {
		if !strings.Contains(dot, want) {
			t.Fatalf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestExportJSON(t *testing.T) {
	ok, _ := json.Marshal(Ok("rules"))
	bad, _ := json.Marshal(Failed[string](errors.New("boom")))
	if string(ok) != `"rules"` || string(bad) != `{"error":"boom"}` {
		t.Fatalf("unexpected JSON %s %s", ok, bad)
	}
}

// learnable labels early multi-vehicle crashes as serious and other
// morning crashes as minor.
func learnable(n int) *features.Encoded {
	src := dataset.GenerateSample(n, 42)
	records := make([]dataset.Record, src.Len())
	src.Each(func(i int, r dataset.Record) {
		h, _ := r.CrashHour.Int()
		u, _ := r.NumUnits.Int()
		r.InjuriesFatal = dataset.Num(0)
		switch {
		case h < 5 && u >= 3:
			r.InjuriesIncapacitating = dataset.Num(1)
		case h < 12:
			r.InjuriesNonIncapacitating = dataset.Num(1)
		}
		records[i] = r
	})
	return features.Encode(dataset.NewTable(records, dataset.SourceSample, ""))
}

func fastOptions(r Renderer) Options {
	opt := DefaultOptions()
	opt.Forest.NTrees = 8
	opt.Tree.MinSamplesSplit = 10
	opt.Tree.MinSamplesLeaf = 5
	opt.Renderer = r
	return opt
}

func TestTrainReport(t *testing.T) {
	e := learnable(800)
	stub := RenderFunc(func(ctx context.Context, dot string) ([]byte, error) { return []byte("<svg/>"), nil })
	rep, err := Train(context.Background(), e, fastOptions(stub))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	k := len(rep.ClassLabels)
	for _, m := range []ModelResult{rep.RandomForest, rep.DecisionTree} {
		if len(m.ConfusionMatrix) != k || len(m.ConfusionMatrix[0]) != k {
			t.Fatalf("confusion matrix should be %dx%d", k, k)
		}
		total := 0
		for _, row := range m.ConfusionMatrix {
			for _, v := range row {
				total += v
			}
		}
		if total != rep.TestSize {
			t.Fatalf("confusion matrix sums to %d, test size %d", total, rep.TestSize)
		}
		if len(m.FeatureImportance) != len(features.ModelFeatures) {
			t.Fatalf("expected %d importances", len(features.ModelFeatures))
		}
		for _, fi := range m.FeatureImportance {
			if strings.Contains(fi.Feature, "injur") {
				t.Fatalf("injury-derived feature %q used", fi.Feature)
			}
		}
	}
	if rep.DecisionTree.Accuracy < 0.7 {
		t.Fatalf("tree should learn the hour/unit rule, accuracy %.2f", rep.DecisionTree.Accuracy)
	}
	if !rep.Structures.Rules.Valid() || !strings.Contains(rep.Structures.Rules.Value, "crash_hour") {
		t.Fatalf("rules export missing crash_hour:\n%v", rep.Structures.Rules)
	}
	if g := rep.Structures.Graphviz; !g.Valid() || g.Value.SVGBase64 != "PHN2Zy8+" {
		t.Fatalf("unexpected graphviz export %+v", g)
	}
	info := rep.Structures.ForestInfo
	if info.NEstimators != 8 || info.MaxDepth != 10 || info.FeatureCount != 13 || len(info.TopFeatures) != 8 || len(info.AllFeatures) != 13 {
		t.Fatalf("unexpected forest info %+v", info)
	}
	want := DecisionTreeName
	if rep.Comparison.RFAccuracy > rep.Comparison.DTAccuracy {
		want = RandomForestName
	}
	if rep.Comparison.BetterModel != want {
		t.Fatalf("better model %q, want %q", rep.Comparison.BetterModel, want)
	}
}

func TestTrainDeterministicAndDegrades(t *testing.T) {
	e := learnable(500)
	failing := RenderFunc(func(ctx context.Context, dot string) ([]byte, error) {
		return nil, errors.New("dot not installed")
	})
	a, err := Train(context.Background(), e, fastOptions(failing))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(context.Background(), e, fastOptions(failing))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("training is not deterministic")
	}
	if a.Structures.Graphviz.Valid() || !strings.Contains(a.Structures.Graphviz.Err, "dot not installed") {
		t.Fatalf("expected degraded graphviz export, got %+v", a.Structures.Graphviz)
	}
	if !a.Structures.Full.Valid() {
		t.Fatalf("text export should survive a render failure")
	}
}

func TestTrainSingleClass(t *testing.T) {
	e := features.Encode(dataset.GenerateSample(50, 1).Filter(func(r dataset.Record) bool { return !r.InjuriesFatal.Positive() }))
	if _, err := Train(context.Background(), e, fastOptions(nil)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
