// Package classify trains and compares two severity classifiers, a single
// CART tree and a bagged forest, on pre-crash conditions.
package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/crashinsight/internal/features"
)

// ErrInsufficientData is returned when the usable rows cannot support a
// train/test split with at least two classes.
var ErrInsufficientData = errors.New("not enough labeled rows to train")

const (
	RandomForestName = "Random Forest"
	DecisionTreeName = "Decision Tree"
)

// Options configures training and the model exports.
type Options struct {
	Seed     int64
	TestSize float64
	Tree     TreeOptions
	Forest   ForestOptions
	Renderer Renderer
	// RulesDepth, FullDepth and GraphDepth bound the text and diagram exports.
	RulesDepth int
	FullDepth  int
	GraphDepth int
}

// DefaultOptions returns the shipped model configuration.
func DefaultOptions() Options {
	return Options{
		Seed:     42,
		TestSize: 0.2,
		Tree: TreeOptions{
			MaxDepth:            7,
			MinSamplesSplit:     50,
			MinSamplesLeaf:      30,
			MinImpurityDecrease: 0.005,
			MaxLeafNodes:        20,
			Seed:                42,
		},
		Forest:     ForestOptions{NTrees: 100, MaxDepth: 10, Seed: 42},
		Renderer:   DotRenderer{Binary: "dot", Timeout: 10 * time.Second},
		RulesDepth: 6,
		FullDepth:  15,
		GraphDepth: 6,
	}
}

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelResult is the held-out evaluation of one model.
type ModelResult struct {
	Accuracy             float64              `json:"accuracy"`
	FeatureImportance    []FeatureImportance  `json:"feature_importance"`
	ConfusionMatrix      [][]int              `json:"confusion_matrix"`
	ClassificationReport ClassificationReport `json:"classification_report"`
}

type Comparison struct {
	RFAccuracy         float64 `json:"rf_accuracy"`
	DTAccuracy         float64 `json:"dt_accuracy"`
	BetterModel        string  `json:"better_model"`
	AccuracyDifference float64 `json:"accuracy_difference"`
}

type ForestInfo struct {
	NEstimators  int                 `json:"n_estimators"`
	MaxDepth     int                 `json:"max_depth"`
	FeatureCount int                 `json:"feature_count"`
	TopFeatures  []FeatureImportance `json:"top_features"`
	AllFeatures  []FeatureImportance `json:"all_features"`
}

// Structures holds the human-readable model exports. Each export fails on
// its own without failing the report.
type Structures struct {
	Rules      Export[string]   `json:"decision_tree_rules"`
	Full       Export[string]   `json:"decision_tree_full"`
	Graphviz   Export[Graphviz] `json:"decision_tree_graphviz"`
	ForestInfo ForestInfo       `json:"random_forest_info"`
}

// Report compares the forest and the tree on the same held-out split.
type Report struct {
	RandomForest ModelResult `json:"random_forest"`
	DecisionTree ModelResult `json:"decision_tree"`
	ClassLabels  []string    `json:"class_labels"`
	FeatureNames []string    `json:"feature_names"`
	TrainSize    int         `json:"train_size"`
	TestSize     int         `json:"test_size"`
	Comparison   Comparison  `json:"model_comparison"`
	Structures   Structures  `json:"model_structures"`
}

// Train fits both models on an 80/20 stratified split of the complete rows
// of e and evaluates them on the held-out rows. Injury-derived columns are
// never features.
func Train(ctx context.Context, e *features.Encoded, opt Options) (*Report, error) {
	x, rows := e.Matrix(features.ModelFeatures)
	names := features.Names(features.ModelFeatures)

	labels := make([]string, len(rows))
	seen := map[string]bool{}
	for i, r := range rows {
		labels[i] = string(e.Label(r))
		seen[labels[i]] = true
	}
	classes := sortedSet(seen)
	if len(classes) < 2 || len(x) < 4 {
		return nil, fmt.Errorf("%w: %d rows, %d classes", ErrInsufficientData, len(x), len(classes))
	}
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIdx[l]
	}

	trainIdx, testIdx := StratifiedSplit(y, len(classes), opt.TestSize, opt.Seed)
	if len(testIdx) == 0 || len(trainIdx) == 0 {
		return nil, fmt.Errorf("%w: empty train or test split", ErrInsufficientData)
	}
	xTrain, yTrain := pick(x, y, trainIdx)
	xTest, _ := pick(x, y, testIdx)
	yTest := make([]string, len(testIdx))
	for i, r := range testIdx {
		yTest[i] = labels[r]
	}

	classWeight := BalancedWeights(yTrain, len(classes))
	forest := FitForest(xTrain, yTrain, classWeight, len(classes), opt.Forest)
	w := make([]float64, len(yTrain))
	for i, c := range yTrain {
		w[i] = classWeight[c]
	}
	tree := FitTree(xTrain, yTrain, w, len(classes), opt.Tree)

	rfPred := make([]string, len(xTest))
	dtPred := make([]string, len(xTest))
	for i, row := range xTest {
		rfPred[i] = classes[forest.Predict(row)]
		dtPred[i] = classes[tree.Predict(row)]
	}

	classLabels := union(yTest, rfPred, dtPred)
	rep := &Report{
		RandomForest: evaluate(yTest, rfPred, classLabels, names, forest.Importances()),
		DecisionTree: evaluate(yTest, dtPred, classLabels, names, tree.Importances()),
		ClassLabels:  classLabels,
		FeatureNames: names,
		TrainSize:    len(trainIdx),
		TestSize:     len(testIdx),
	}
	rf, dt := rep.RandomForest.Accuracy, rep.DecisionTree.Accuracy
	rep.Comparison = Comparison{RFAccuracy: rf, DTAccuracy: dt, BetterModel: DecisionTreeName, AccuracyDifference: abs(rf - dt)}
	if rf > dt {
		rep.Comparison.BetterModel = RandomForestName
	}

	rep.Structures.Rules = textExport(tree, names, classes, opt.RulesDepth)
	rep.Structures.Full = textExport(tree, names, classes, opt.FullDepth)
	rep.Structures.Graphviz = RenderGraphviz(ctx, opt.Renderer, tree, displayFeatureNames(features.ModelFeatures), displayClassNames(classes), opt.GraphDepth)

	ranked := rep.RandomForest.FeatureImportance
	top := ranked
	if len(top) > 8 {
		top = top[:8]
	}
	all := make([]FeatureImportance, 0, len(names))
	for i, v := range forest.Importances() {
		if i == 15 {
			break
		}
		all = append(all, FeatureImportance{Feature: names[i], Importance: v})
	}
	rep.Structures.ForestInfo = ForestInfo{
		NEstimators:  len(forest.Trees),
		MaxDepth:     forest.MaxDepth,
		FeatureCount: len(names),
		TopFeatures:  top,
		AllFeatures:  all,
	}
	return rep, nil
}

func textExport(t *Tree, names, classes []string, depth int) Export[string] {
	s, err := ExportText(t, names, classes, depth)
	if err != nil {
		return Failed[string](fmt.Errorf("error generating tree structure: %w", err))
	}
	return Ok(s)
}

func evaluate(yTrue, yPred, classLabels, names []string, importances []float64) ModelResult {
	return ModelResult{
		Accuracy:             Accuracy(yTrue, yPred),
		FeatureImportance:    rank(names, importances),
		ConfusionMatrix:      ConfusionMatrix(yTrue, yPred, classLabels),
		ClassificationReport: NewClassificationReport(yTrue, yPred, union(yTrue, yPred)),
	}
}

// rank orders features by importance desc, then name asc.
func rank(names []string, importances []float64) []FeatureImportance {
	out := make([]FeatureImportance, len(names))
	for i, n := range names {
		out[i] = FeatureImportance{Feature: n, Importance: importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance == out[j].Importance {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Importance > out[j].Importance
	})
	return out
}

func pick(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, r := range idx {
		xs[i] = x[r]
		ys[i] = y[r]
	}
	return xs, ys
}

func union(lists ...[]string) []string {
	seen := map[string]bool{}
	for _, l := range lists {
		for _, v := range l {
			seen[v] = true
		}
	}
	return sortedSet(seen)
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var featureDisplay = map[string]string{
	"first_crash_type_encoded":        "Collision Type",
	"num_units":                       "Vehicle Count\n(Multi-vehicle risk)",
	"prim_contributory_cause_encoded": "Primary Cause",
	"weather_condition_encoded":       "Weather Condition",
	"lighting_condition_encoded":      "Lighting Condition",
	"traffic_control_device_encoded":  "Traffic Control",
	"crash_hour":                      "Hour of Day",
	"crash_day_of_week":               "Day of Week",
}

var classDisplay = map[string]string{
	string(features.Fatal):         "FATAL\nAccident",
	string(features.SeriousInjury): "SERIOUS\nInjury\n(Incapacitating)",
	string(features.MinorInjury):   "MINOR\nInjury\n(Non-incapacitating)",
	string(features.NoInjury):      "NO INJURY\nProperty\nDamage Only",
}

func displayFeatureNames(fs []features.Feature) []string {
	title := cases.Title(language.English)
	out := make([]string, len(fs))
	for i, f := range fs {
		if d, ok := featureDisplay[f.Name()]; ok {
			out[i] = d
			continue
		}
		out[i] = title.String(strings.ReplaceAll(string(f.Field), "_", " "))
	}
	return out
}

func displayClassNames(classes []string) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		if d, ok := classDisplay[c]; ok {
			out[i] = d
		} else {
			out[i] = c
		}
	}
	return out
}
