package rules

import "github.com/KaramelBytes/crashinsight/internal/dataset"

// obviousPairs are co-occurrences that restate the environment rather than
// explain a crash. They are rejected in either direction.
var obviousPairs = [][2]string{
	{"weather_condition_CLEAR", "lighting_condition_DAYLIGHT"},
	{"weather_condition_RAIN", "roadway_surface_cond_WET"},
	{"weather_condition_SNOW", "roadway_surface_cond_SNOW OR SLUSH"},
	{"lighting_condition_DARKNESS", "lighting_condition_LIGHTED"},
}

// MinLift is the exclusive lower bound on lift for a kept rule.
const MinLift = 1.1

var environmental = map[dataset.Field]bool{
	dataset.WeatherCondition:   true,
	dataset.LightingCondition:  true,
	dataset.RoadwaySurfaceCond: true,
}

func isObvious(a, b Item) bool {
	for _, p := range obviousPairs {
		if (a.Name == p[0] && b.Name == p[1]) || (a.Name == p[1] && b.Name == p[0]) {
			return true
		}
	}
	weatherSurface := func(x, y Item) bool {
		return x.Field == dataset.WeatherCondition && y.Field == dataset.RoadwaySurfaceCond
	}
	return weatherSurface(a, b) || weatherSurface(b, a)
}

// relevant reports whether a rule predicts an accident outcome from
// conditions without restating the environment.
func relevant(ante, cons []Item, lift float64) bool {
	if lift <= MinLift {
		return false
	}
	outcome := false
	for _, c := range cons {
		if environmental[c.Field] {
			return false
		}
		if c.outcome() || c.Field == dataset.FirstCrashType {
			outcome = true
		}
	}
	if !outcome {
		return false
	}
	for _, a := range ante {
		for _, c := range cons {
			if isObvious(a, c) {
				return false
			}
		}
	}
	return true
}
