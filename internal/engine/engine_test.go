package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/crashinsight/internal/classify"
	"github.com/KaramelBytes/crashinsight/internal/cluster"
	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < rows; i++ {
		cells := make([]string, len(dataset.Schema))
		for j, f := range dataset.Schema {
			switch f {
			case dataset.WeatherCondition:
				cells[j] = []string{"CLEAR", "RAIN", "SNOW"}[i%3]
			case dataset.CrashHour:
				cells[j] = fmt.Sprint(i % 24)
			case dataset.CrashDayOfWeek:
				cells[j] = fmt.Sprint(1 + i%7)
			case dataset.CrashMonth:
				cells[j] = fmt.Sprint(1 + i%12)
			case dataset.NumUnits:
				cells[j] = fmt.Sprint(1 + i%3)
			case dataset.InjuriesTotal:
				cells[j] = fmt.Sprint(i % 4)
			case dataset.InjuriesFatal, dataset.InjuriesIncapacitating:
				cells[j] = "0"
			case dataset.InjuriesNonIncapacitating:
				cells[j] = fmt.Sprint(i % 2)
			default:
				cells[j] = "X"
			}
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "traffic_accidents.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestConcurrentLoadRunsOnce(t *testing.T) {
	path := writeDataset(t, 120)
	var mu sync.Mutex
	logs := 0
	e := New(Options{
		Dataset: dataset.Options{Path: path},
		Logf: func(string, ...interface{}) {
			mu.Lock()
			logs++
			mu.Unlock()
		},
	})
	if h := e.Health(); h.DataLoaded {
		t.Fatalf("health should not trigger a load: %+v", h)
	}

	var wg sync.WaitGroup
	tables := make([]*dataset.Table, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := e.Table()
			if err != nil {
				t.Errorf("Table: %v", err)
				return
			}
			tables[i] = tbl
		}(i)
	}
	wg.Wait()
	for _, tbl := range tables[1:] {
		if tbl != tables[0] {
			t.Fatalf("callers observed different tables")
		}
	}
	if logs != 1 {
		t.Fatalf("expected one load, got %d", logs)
	}
	h := e.Health()
	if !h.DataLoaded || h.TotalRecords != 120 || h.Source != "file" || h.Status != "healthy" {
		t.Fatalf("unexpected health %+v", h)
	}
}

func TestLoadFailureIsSticky(t *testing.T) {
	t.Setenv(dataset.EnvDatasetPath, "")
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	e := New(Options{Dataset: dataset.Options{Path: filepath.Join(t.TempDir(), "missing.csv")}})
	_, err := e.BasicStats()
	if !errors.Is(err, dataset.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
	if _, err2 := e.TimeAnalysis(); err2 == nil || err2.Error() != err.Error() {
		t.Fatalf("second call should return the same error, got %v", err2)
	}
	if h := e.Health(); h.Status != "unhealthy" || h.DataLoaded {
		t.Fatalf("unexpected health %+v", h)
	}
}

func TestOperationsValidateInput(t *testing.T) {
	e := New(Options{Dataset: dataset.Options{Path: writeDataset(t, 60)}})
	_, err := e.Clustering(1)
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, cluster.ErrInvalidK) {
		t.Fatalf("expected invalid k, got %v", err)
	}
	if _, err := e.AssociationRules(0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid support, got %v", err)
	}
	if _, err := e.AssociationRules(1.2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid support, got %v", err)
	}
}

func TestOperations(t *testing.T) {
	e := New(Options{Dataset: dataset.Options{Path: writeDataset(t, 240)}})
	stats, err := e.BasicStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAccidents != 240 || stats.InjuryAccidents+stats.PropertyDamageOnly != 240 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	ta, err := e.TimeAnalysis()
	if err != nil || len(ta.Hourly) != 24 || ta.Daily[0].Day != "Sunday" {
		t.Fatalf("unexpected time analysis %+v, %v", ta, err)
	}
	if sa, err := e.SeverityAnalysis(); err != nil || len(sa.ByWeather) != 3 {
		t.Fatalf("unexpected severity analysis %+v, %v", sa, err)
	}
	if la, err := e.LocationAnalysis(); err != nil || la.TrafficControl[0].Type != "X" {
		t.Fatalf("unexpected location analysis %+v, %v", la, err)
	}
	res, err := e.Clustering(3)
	if err != nil || len(res.Clusters) != 3 {
		t.Fatalf("unexpected clustering %v, %v", res, err)
	}
	if _, err := e.AssociationRules(0.05); err != nil {
		t.Fatalf("AssociationRules: %v", err)
	}
	rep, err := e.Report()
	if err != nil || !strings.Contains(rep.Markdown(), "[SEVERITY]") {
		t.Fatalf("unexpected report %v", err)
	}
}

func TestSeverityModelWithSampleData(t *testing.T) {
	t.Setenv(dataset.EnvDatasetPath, "")
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	opt := classify.DefaultOptions()
	opt.Forest.NTrees = 5
	e := New(Options{
		Dataset: dataset.Options{Path: "missing.csv", AllowSample: true},
		Model:   &opt,
	})
	rep, err := e.SeverityModel(context.Background())
	if err != nil {
		t.Fatalf("SeverityModel: %v", err)
	}
	if rep.Structures.Graphviz.Valid() {
		t.Fatalf("graphviz export should fail without a renderer")
	}
	if h := e.Health(); h.Source != "sample" || h.TotalRecords != 1000 {
		t.Fatalf("unexpected health %+v", h)
	}
}
