package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

func rec(weather, lighting, crash, surface string, units, total, fatal float64) dataset.Record {
	r := dataset.NewRecord(nil)
	r.WeatherCondition = weather
	r.LightingCondition = lighting
	r.FirstCrashType = crash
	r.RoadwaySurfaceCond = surface
	r.NumUnits = dataset.Num(units)
	r.InjuriesTotal = dataset.Num(total)
	r.InjuriesFatal = dataset.Num(fatal)
	return r
}

type group struct {
	n int
	r dataset.Record
}

func table(groups ...group) *dataset.Table {
	var records []dataset.Record
	for _, g := range groups {
		for i := 0; i < g.n; i++ {
			records = append(records, g.r)
		}
	}
	return dataset.NewTable(records, dataset.SourceFile, "")
}

func rainyRearEnds() *dataset.Table {
	return table(
		group{30, rec("RAIN", "DARKNESS", "REAR END", "WET", 2, 2, 0)},
		group{50, rec("CLEAR", "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)},
		group{20, rec("CLEAR", "DARKNESS", "ANGLE", "DRY", 2, 0, 0)},
	)
}

// rainyInjuries differs only in weather and injuries, so every kept rule
// links RAIN to high_injury.
func rainyInjuries() *dataset.Table {
	return table(
		group{30, rec("RAIN", "DAYLIGHT", "ANGLE", "DRY", 1, 2, 0)},
		group{70, rec("CLEAR", "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)},
	)
}

func TestMineKeepsOutcomeRules(t *testing.T) {
	res, err := Mine(rainyInjuries(), 0.05)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(res.Rules) == 0 || res.Error != "" {
		t.Fatalf("expected rules, got %+v", res)
	}
	found := false
	for i, r := range res.Rules {
		if r.Lift <= MinLift {
			t.Fatalf("rule %s has lift %.3f", r, r.Lift)
		}
		if r.Confidence < MinConfidence {
			t.Fatalf("rule %s has confidence %.3f", r, r.Confidence)
		}
		for _, c := range r.Consequents {
			for _, env := range []string{"weather_condition", "lighting_condition", "roadway_surface_cond"} {
				if strings.HasPrefix(c, env) {
					t.Fatalf("rule %s predicts the environment", r)
				}
			}
		}
		if i > 0 && res.Rules[i-1].Lift < r.Lift {
			t.Fatalf("rules not sorted by lift at %d", i)
		}
		if reflect.DeepEqual(r.Antecedents, []string{"weather_condition_RAIN"}) && reflect.DeepEqual(r.Consequents, []string{HighInjury}) {
			found = true
			if r.Confidence != 1 || r.Support != 0.3 {
				t.Fatalf("unexpected RAIN -> high_injury metrics %+v", r)
			}
		}
	}
	if !found {
		t.Fatalf("expected weather_condition_RAIN -> high_injury among %v", res.Rules)
	}
	if len(res.Rules) > MaxRules {
		t.Fatalf("expected at most %d rules, got %d", MaxRules, len(res.Rules))
	}
}

func TestMineDropsObviousPairs(t *testing.T) {
	tbl := table(
		group{40, rec("CLEAR", "DAYLIGHT", "REAR END", "DRY", 2, 2, 0)},
		group{60, rec("CLEAR", "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)},
	)
	res, err := Mine(tbl, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range res.Rules {
		all := strings.Join(append(append([]string{}, r.Antecedents...), r.Consequents...), "|")
		if strings.Contains(all, "weather_condition_CLEAR") && strings.Contains(all, "lighting_condition_DAYLIGHT") &&
			(contains(r.Consequents, "weather_condition_CLEAR") || contains(r.Consequents, "lighting_condition_DAYLIGHT")) {
			t.Fatalf("obvious rule kept: %s", r)
		}
	}
	if !isObvious(Item{Name: "roadway_surface_cond_WET", Field: dataset.RoadwaySurfaceCond}, Item{Name: "weather_condition_RAIN", Field: dataset.WeatherCondition}) {
		t.Fatalf("reverse exclusion pair not matched")
	}
	if !isObvious(Item{Field: dataset.WeatherCondition, Name: "weather_condition_FOG"}, Item{Field: dataset.RoadwaySurfaceCond, Name: "roadway_surface_cond_ICE"}) {
		t.Fatalf("weather and surface items should never pair")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestMineDeterministic(t *testing.T) {
	a, err := Mine(rainyRearEnds(), 0.02)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Mine(rainyRearEnds(), 0.02)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs differ")
	}
}

func TestMineEmptyResult(t *testing.T) {
	tbl := table(group{10, rec("CLEAR", "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)})
	res, err := Mine(tbl, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rules == nil || len(res.Rules) != 0 || res.Error != NoRulesMessage {
		t.Fatalf("expected empty marker, got %+v", res)
	}
}

func TestMineRejectsBadSupport(t *testing.T) {
	for _, s := range []float64{0, -0.1, 1.5} {
		if _, err := Mine(rainyRearEnds(), s); !errors.Is(err, ErrInvalidSupport) {
			t.Fatalf("support %v: expected ErrInvalidSupport, got %v", s, err)
		}
	}
}

func TestUnknownIsNeverAnItem(t *testing.T) {
	tbl := table(
		group{5, rec(dataset.Unknown, "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)},
		group{1, rec("RAIN", "DAYLIGHT", "ANGLE", "DRY", 1, 0, 0)},
	)
	tx := buildTransactions(tbl)
	for _, it := range tx.items {
		if it.Value == dataset.Unknown {
			t.Fatalf("Unknown placeholder became item %q", it.Name)
		}
	}
	// Unset traffic_control_device is Unknown in every row, so it contributes no items.
	for _, it := range tx.items {
		if it.Field == dataset.TrafficControlDevice {
			t.Fatalf("unexpected item %q", it.Name)
		}
	}
}
