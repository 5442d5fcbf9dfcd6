package classify

import (
	"bytes"
	"encoding/json"
)

// ConfusionMatrix counts (true, predicted) pairs. Rows and columns follow labels.
func ConfusionMatrix(yTrue, yPred []string, labels []string) [][]int {
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	m := make([][]int, len(labels))
	for i := range m {
		m[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		r, ok1 := pos[yTrue[i]]
		c, ok2 := pos[yPred[i]]
		if ok1 && ok2 {
			m[r][c]++
		}
	}
	return m
}

// Accuracy is the fraction of exact matches; 0 for empty input.
func Accuracy(yTrue, yPred []string) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	hit := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(yTrue))
}

// ClassMetrics are the per-class scores. Undefined ratios are 0.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ClassificationReport holds per-class metrics in label order plus averages.
// It marshals to a flat object keyed by class name, "accuracy", "macro avg"
// and "weighted avg".
type ClassificationReport struct {
	Labels      []string
	PerClass    []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

// NewClassificationReport scores yPred against yTrue over labels.
func NewClassificationReport(yTrue, yPred []string, labels []string) ClassificationReport {
	cm := ConfusionMatrix(yTrue, yPred, labels)
	r := ClassificationReport{Labels: labels, PerClass: make([]ClassMetrics, len(labels)), Accuracy: Accuracy(yTrue, yPred)}
	total := 0
	for i := range labels {
		tp := cm[i][i]
		predicted, actual := 0, 0
		for j := range labels {
			predicted += cm[j][i]
			actual += cm[i][j]
		}
		m := ClassMetrics{Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerClass[i] = m
		total += actual
	}
	if n := float64(len(labels)); n > 0 {
		for _, m := range r.PerClass {
			r.MacroAvg.Precision += m.Precision / n
			r.MacroAvg.Recall += m.Recall / n
			r.MacroAvg.F1 += m.F1 / n
			if total > 0 {
				w := float64(m.Support) / float64(total)
				r.WeightedAvg.Precision += m.Precision * w
				r.WeightedAvg.Recall += m.Recall * w
				r.WeightedAvg.F1 += m.F1 * w
			}
		}
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	return r
}

func (r ClassificationReport) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	write := func(key string, v interface{}) error {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		b.Write(k)
		b.WriteByte(':')
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(raw)
		return nil
	}
	for i, l := range r.Labels {
		if err := write(l, r.PerClass[i]); err != nil {
			return nil, err
		}
	}
	if err := write("accuracy", r.Accuracy); err != nil {
		return nil, err
	}
	if err := write("macro avg", r.MacroAvg); err != nil {
		return nil, err
	}
	if err := write("weighted avg", r.WeightedAvg); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
