// Package engine owns the loaded accident table and runs every analysis
// against it. Each call computes a fresh result; nothing is cached besides
// the table and its encoding.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KaramelBytes/crashinsight/internal/analysis"
	"github.com/KaramelBytes/crashinsight/internal/classify"
	"github.com/KaramelBytes/crashinsight/internal/cluster"
	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/features"
	"github.com/KaramelBytes/crashinsight/internal/rules"
)

// ErrInvalidInput marks errors caused by caller-supplied parameters.
var ErrInvalidInput = errors.New("invalid input")

// Options configures an Engine.
type Options struct {
	Dataset dataset.Options
	// Renderer draws the decision tree diagram; nil disables it.
	Renderer classify.Renderer
	// Model overrides the classifier settings when non-nil.
	Model *classify.Options
	// Logf receives load progress. Nil discards it.
	Logf func(format string, args ...interface{})
}

// Engine is safe for concurrent use. The dataset is loaded at most once.
type Engine struct {
	opt   Options
	once  sync.Once
	state atomic.Pointer[loadState]
}

// loadState is published once, after the load finishes.
type loadState struct {
	table *dataset.Table
	enc   *features.Encoded
	err   error
}

// New returns an Engine that will load according to opt on first use.
func New(opt Options) *Engine {
	if opt.Logf == nil {
		opt.Logf = func(string, ...interface{}) {}
	}
	return &Engine{opt: opt}
}

// NewFromTable returns an Engine over an already loaded table.
func NewFromTable(t *dataset.Table, opt Options) *Engine {
	e := New(opt)
	e.once.Do(func() {
		e.state.Store(&loadState{table: t, enc: features.Encode(t)})
	})
	return e
}

// Load reads and encodes the dataset. Concurrent callers wait for the single
// load and all see its outcome.
func (e *Engine) Load() error {
	e.once.Do(func() {
		start := time.Now()
		t, err := dataset.Open(e.opt.Dataset)
		if err != nil {
			e.state.Store(&loadState{err: fmt.Errorf("load dataset: %w", err)})
			return
		}
		e.state.Store(&loadState{table: t, enc: features.Encode(t)})
		if t.Source() == dataset.SourceSample {
			e.opt.Logf("dataset file not found; using %d synthetic sample records", t.Len())
		} else {
			e.opt.Logf("dataset loaded from %s with %d records in %s", t.Path(), t.Len(), time.Since(start).Round(time.Millisecond))
		}
	})
	return e.state.Load().err
}

// Table returns the loaded table, loading it if needed.
func (e *Engine) Table() (*dataset.Table, error) {
	if err := e.Load(); err != nil {
		return nil, err
	}
	return e.state.Load().table, nil
}

func (e *Engine) encoded() (*features.Encoded, error) {
	if err := e.Load(); err != nil {
		return nil, err
	}
	return e.state.Load().enc, nil
}

func (e *Engine) BasicStats() (analysis.BasicStats, error) {
	enc, err := e.encoded()
	if err != nil {
		return analysis.BasicStats{}, err
	}
	return analysis.ComputeBasicStats(enc.Table()), nil
}

func (e *Engine) TimeAnalysis() (analysis.TimeAnalysis, error) {
	enc, err := e.encoded()
	if err != nil {
		return analysis.TimeAnalysis{}, err
	}
	return analysis.ComputeTimeAnalysis(enc.Table()), nil
}

func (e *Engine) SeverityAnalysis() (analysis.SeverityAnalysis, error) {
	enc, err := e.encoded()
	if err != nil {
		return analysis.SeverityAnalysis{}, err
	}
	return analysis.ComputeSeverityAnalysis(enc), nil
}

func (e *Engine) LocationAnalysis() (analysis.LocationAnalysis, error) {
	enc, err := e.encoded()
	if err != nil {
		return analysis.LocationAnalysis{}, err
	}
	return analysis.ComputeLocationAnalysis(enc.Table()), nil
}

// Report bundles the four descriptive analyses for text output.
func (e *Engine) Report() (*analysis.Report, error) {
	enc, err := e.encoded()
	if err != nil {
		return nil, err
	}
	name := "sample data"
	if p := enc.Table().Path(); p != "" {
		name = p
	}
	return analysis.BuildReport(name, enc), nil
}

// Clustering groups accidents into k clusters.
func (e *Engine) Clustering(k int) (*cluster.Result, error) {
	enc, err := e.encoded()
	if err != nil {
		return nil, err
	}
	opt := cluster.DefaultOptions()
	opt.K = k
	res, err := cluster.Run(enc, opt)
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidK) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("clustering: %w", err)
	}
	return res, nil
}

// SeverityModel trains and compares the two classifiers. ctx bounds the
// diagram rendering.
func (e *Engine) SeverityModel(ctx context.Context) (*classify.Report, error) {
	enc, err := e.encoded()
	if err != nil {
		return nil, err
	}
	opt := classify.DefaultOptions()
	if e.opt.Model != nil {
		opt = *e.opt.Model
	}
	opt.Renderer = e.opt.Renderer
	rep, err := classify.Train(ctx, enc, opt)
	if err != nil {
		return nil, fmt.Errorf("severity model: %w", err)
	}
	return rep, nil
}

// AssociationRules mines filtered rules at minSupport.
func (e *Engine) AssociationRules(minSupport float64) (*rules.Result, error) {
	t, err := e.Table()
	if err != nil {
		return nil, err
	}
	res, err := rules.Mine(t, minSupport)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidSupport) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("association rules: %w", err)
	}
	return res, nil
}

// Health describes the engine without triggering a load.
type Health struct {
	Status       string `json:"status"`
	DataLoaded   bool   `json:"data_loaded"`
	TotalRecords int    `json:"total_records"`
	Source       string `json:"source,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (e *Engine) Health() Health {
	st := e.state.Load()
	switch {
	case st == nil:
		return Health{Status: "healthy"}
	case st.err != nil:
		return Health{Status: "unhealthy", Error: st.err.Error()}
	}
	return Health{
		Status:       "healthy",
		DataLoaded:   true,
		TotalRecords: st.table.Len(),
		Source:       string(st.table.Source()),
	}
}
