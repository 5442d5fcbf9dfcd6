package analysis

import (
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

// DateRange spans the parsed crash timestamps.
type DateRange struct {
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// BasicStats is the headline summary of the dataset.
type BasicStats struct {
	TotalAccidents         int        `json:"total_accidents"`
	FatalAccidents         int        `json:"fatal_accidents"`
	InjuryAccidents        int        `json:"injury_accidents"`
	PropertyDamageOnly     int        `json:"property_damage_only"`
	AvgInjuriesPerAccident float64    `json:"avg_injuries_per_accident"`
	MostCommonCrashType    string     `json:"most_common_crash_type"`
	MostCommonWeather      string     `json:"most_common_weather"`
	MostCommonLighting     string     `json:"most_common_lighting"`
	DateRange              *DateRange `json:"date_range,omitempty"`
	Source                 string     `json:"source"`
}

// ComputeBasicStats summarizes t. Rows with an invalid injury total count as
// property damage only, so total always equals injury plus PDO.
func ComputeBasicStats(t *dataset.Table) BasicStats {
	s := BasicStats{
		TotalAccidents:      t.Len(),
		MostCommonCrashType: Mode(t, dataset.FirstCrashType),
		MostCommonWeather:   Mode(t, dataset.WeatherCondition),
		MostCommonLighting:  Mode(t, dataset.LightingCondition),
		Source:              string(t.Source()),
	}
	var totals []float64
	var first, last time.Time
	t.Each(func(_ int, r dataset.Record) {
		if r.InjuriesFatal.Positive() {
			s.FatalAccidents++
		}
		if r.InjuriesTotal.Positive() {
			s.InjuryAccidents++
		}
		if r.InjuriesTotal.Valid {
			totals = append(totals, r.InjuriesTotal.Value)
		}
		if at := r.CrashAt; !at.IsZero() {
			if first.IsZero() || at.Before(first) {
				first = at
			}
			if last.IsZero() || at.After(last) {
				last = at
			}
		}
	})
	s.PropertyDamageOnly = s.TotalAccidents - s.InjuryAccidents
	if len(totals) > 0 {
		s.AvgInjuriesPerAccident = stat.Mean(totals, nil)
	}
	if !first.IsZero() {
		s.DateRange = &DateRange{First: first, Last: last}
	}
	return s
}

var (
	dayNames   = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// DayName maps 1..7 to Sunday..Saturday.
func DayName(d int) string {
	if d >= 1 && d <= len(dayNames) {
		return dayNames[d-1]
	}
	return "Day " + strconv.Itoa(d)
}

// MonthName maps 1..12 to Jan..Dec.
func MonthName(m int) string {
	if m >= 1 && m <= len(monthNames) {
		return monthNames[m-1]
	}
	return "Month " + strconv.Itoa(m)
}

type HourCount struct {
	Hour      int `json:"hour"`
	Accidents int `json:"accidents"`
}

type DayCount struct {
	Day       string `json:"day"`
	Accidents int    `json:"accidents"`
}

type MonthCount struct {
	Month     string `json:"month"`
	Accidents int    `json:"accidents"`
}

// TimeAnalysis holds accident counts by hour, day and month. Records with an
// invalid value for a dimension are left out of that dimension only.
type TimeAnalysis struct {
	Hourly  []HourCount  `json:"hourly_distribution"`
	Daily   []DayCount   `json:"daily_distribution"`
	Monthly []MonthCount `json:"monthly_distribution"`
}

// ComputeTimeAnalysis buckets t by crash_hour, crash_day_of_week and crash_month.
func ComputeTimeAnalysis(t *dataset.Table) TimeAnalysis {
	ta := TimeAnalysis{
		Hourly:  []HourCount{},
		Daily:   []DayCount{},
		Monthly: []MonthCount{},
	}
	for _, c := range countInts(t.Numbers(dataset.CrashHour)) {
		ta.Hourly = append(ta.Hourly, HourCount{Hour: c.Key, Accidents: c.Count})
	}
	for _, c := range countInts(t.Numbers(dataset.CrashDayOfWeek)) {
		ta.Daily = append(ta.Daily, DayCount{Day: DayName(c.Key), Accidents: c.Count})
	}
	for _, c := range countInts(t.Numbers(dataset.CrashMonth)) {
		ta.Monthly = append(ta.Monthly, MonthCount{Month: MonthName(c.Key), Accidents: c.Count})
	}
	return ta
}
