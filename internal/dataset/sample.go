package dataset

import (
	"math"
	"math/rand"
)

// GenerateSample synthesizes n records from fixed marginal distributions.
// Only the temporal, weather, lighting, first-crash-type, injury total,
// fatal count and unit count fields are populated; everything else is Unknown.
func GenerateSample(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	weather := []string{"CLEAR", "RAIN", "SNOW", "CLOUDY"}
	lighting := []string{"DAYLIGHT", "DARKNESS", "DAWN", "DUSK"}
	crashTypes := []string{"REAR END", "SIDESWIPE", "HEAD ON", "ANGLE"}

	records := make([]Record, n)
	for i := range records {
		r := NewRecord(nil)
		r.CrashHour = Num(float64(rng.Intn(24)))
		r.CrashDayOfWeek = Num(float64(1 + rng.Intn(7)))
		r.CrashMonth = Num(float64(1 + rng.Intn(12)))
		r.WeatherCondition = weather[rng.Intn(len(weather))]
		r.LightingCondition = lighting[rng.Intn(len(lighting))]
		r.FirstCrashType = crashTypes[rng.Intn(len(crashTypes))]
		r.InjuriesTotal = Num(float64(poisson(rng, 0.5)))
		fatal := 0.0
		if rng.Float64() < 0.01 {
			fatal = 1
		}
		r.InjuriesFatal = Num(fatal)
		r.NumUnits = Num(float64(1 + rng.Intn(4)))
		records[i] = r
	}
	return NewTable(records, SourceSample, "")
}

// poisson draws with Knuth's multiplication method; fine for small lambda.
func poisson(rng *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
