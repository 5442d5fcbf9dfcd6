package features

import "github.com/KaramelBytes/crashinsight/internal/dataset"

// Feature is one model input: either the code of a nominal field or a raw
// numeric field.
type Feature struct {
	Field   dataset.Field
	Encoded bool
}

func enc(f dataset.Field) Feature { return Feature{Field: f, Encoded: true} }
func raw(f dataset.Field) Feature { return Feature{Field: f} }

// Name renders the feature the way reports refer to it.
func (f Feature) Name() string {
	if f.Encoded {
		return string(f.Field) + "_encoded"
	}
	return string(f.Field)
}

// ClusterFeatures is the k-means input vector, in order.
var ClusterFeatures = []Feature{
	enc(dataset.TrafficControlDevice),
	enc(dataset.WeatherCondition),
	enc(dataset.LightingCondition),
	enc(dataset.FirstCrashType),
	enc(dataset.RoadwaySurfaceCond),
	raw(dataset.CrashHour),
	raw(dataset.CrashDayOfWeek),
	raw(dataset.CrashMonth),
	raw(dataset.InjuriesTotal),
}

// ModelFeatures is the severity classifier input vector, in order.
var ModelFeatures = []Feature{
	enc(dataset.TrafficControlDevice),
	enc(dataset.WeatherCondition),
	enc(dataset.LightingCondition),
	enc(dataset.FirstCrashType),
	enc(dataset.TrafficwayType),
	enc(dataset.Alignment),
	enc(dataset.RoadwaySurfaceCond),
	enc(dataset.RoadDefect),
	enc(dataset.PrimContributoryCause),
	raw(dataset.CrashHour),
	raw(dataset.CrashDayOfWeek),
	raw(dataset.CrashMonth),
	raw(dataset.NumUnits),
}

// Names maps fs to their display names.
func Names(fs []Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name()
	}
	return out
}
