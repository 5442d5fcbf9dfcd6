package analysis

import "github.com/KaramelBytes/crashinsight/internal/dataset"

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type ConditionCount struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}

// LocationAnalysis lists the ten most frequent values of three road fields.
type LocationAnalysis struct {
	TrafficControl []TypeCount      `json:"traffic_control_distribution"`
	RoadSurface    []ConditionCount `json:"road_surface_distribution"`
	Trafficway     []TypeCount      `json:"trafficway_distribution"`
}

const locationTopN = 10

// ComputeLocationAnalysis builds the top-10 lists, ordered by count desc then value asc.
func ComputeLocationAnalysis(t *dataset.Table) LocationAnalysis {
	la := LocationAnalysis{
		TrafficControl: []TypeCount{},
		RoadSurface:    []ConditionCount{},
		Trafficway:     []TypeCount{},
	}
	for _, c := range TopValues(t, dataset.TrafficControlDevice, locationTopN) {
		la.TrafficControl = append(la.TrafficControl, TypeCount{Type: c.Value, Count: c.Count})
	}
	for _, c := range TopValues(t, dataset.RoadwaySurfaceCond, locationTopN) {
		la.RoadSurface = append(la.RoadSurface, ConditionCount{Condition: c.Value, Count: c.Count})
	}
	for _, c := range TopValues(t, dataset.TrafficwayType, locationTopN) {
		la.Trafficway = append(la.Trafficway, TypeCount{Type: c.Value, Count: c.Count})
	}
	return la
}
