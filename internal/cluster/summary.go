package cluster

import (
	"fmt"
	"math"
	"sort"
)

// InjuryBands counts rows by total injuries: 0, 1-2 and more than 2.
type InjuryBands struct {
	NoInjury int `json:"no_injury"`
	Minor    int `json:"minor"`
	Serious  int `json:"serious"`
}

// PeriodDescription gives both readings of the crash_day_of_week column,
// whose values in the source data may be a weekday or a month index.
type PeriodDescription struct {
	AsWeekday string `json:"as_weekday"`
	AsMonth   string `json:"as_month"`
}

// Summary describes one cluster in unstandardized feature units.
type Summary struct {
	Size               int               `json:"size"`
	Percentage         float64           `json:"percentage"`
	AvgInjuries        float64           `json:"avg_injuries"`
	InjuryDistribution InjuryBands       `json:"injury_distribution"`
	CommonHour         int               `json:"common_hour"`
	CommonPeriod       int               `json:"common_period"`
	CommonMonth        int               `json:"common_month"`
	RiskLevel          string            `json:"risk_level"`
	ClusterLabel       string            `json:"cluster_label"`
	HourDescription    string            `json:"hour_description"`
	PeriodDescription  PeriodDescription `json:"period_description"`
	HourDistribution   map[int]int       `json:"hour_distribution"`
	PeriodDistribution map[int]int       `json:"period_distribution"`
}

// member is the raw temporal and injury data of one clustered row.
type member struct {
	hour, period, month int
	injuries            float64
}

func summarize(idx int, members []member, total int) Summary {
	s := Summary{
		Size:               len(members),
		ClusterLabel:       fmt.Sprintf("Cluster %d", idx),
		HourDistribution:   map[int]int{},
		PeriodDistribution: map[int]int{},
		CommonMonth:        1,
	}
	if total > 0 {
		s.Percentage = round(float64(len(members))*100/float64(total), 1)
	}
	hours, periods, months := map[int]int{}, map[int]int{}, map[int]int{}
	sum := 0.0
	for _, m := range members {
		sum += m.injuries
		switch {
		case m.injuries == 0:
			s.InjuryDistribution.NoInjury++
		case m.injuries > 0 && m.injuries <= 2:
			s.InjuryDistribution.Minor++
		case m.injuries > 2:
			s.InjuryDistribution.Serious++
		}
		hours[m.hour]++
		periods[m.period]++
		months[m.month]++
	}
	mean := 0.0
	if len(members) > 0 {
		mean = sum / float64(len(members))
		s.CommonHour = rankCounts(hours)[0].key
		s.CommonPeriod = rankCounts(periods)[0].key
		s.CommonMonth = rankCounts(months)[0].key
	}
	s.AvgInjuries = round(mean, 2)
	s.RiskLevel = riskLevel(mean)
	s.HourDescription = HourRange(s.CommonHour)
	s.PeriodDescription = PeriodDescription{AsWeekday: weekdayName(s.CommonPeriod), AsMonth: monthName(s.CommonPeriod)}
	for i, kc := range rankCounts(hours) {
		if i == 3 {
			break
		}
		s.HourDistribution[kc.key] = kc.count
	}
	for k, c := range periods {
		s.PeriodDistribution[k] = c
	}
	return s
}

type keyCount struct{ key, count int }

// rankCounts orders by count desc then key asc, so the first entry is the
// mode with ties broken toward the smaller value.
func rankCounts(m map[int]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count == out[j].count {
			return out[i].key < out[j].key
		}
		return out[i].count > out[j].count
	})
	return out
}

func riskLevel(meanInjuries float64) string {
	switch {
	case meanInjuries > 0.6:
		return "High"
	case meanInjuries > 0.3:
		return "Medium"
	default:
		return "Low"
	}
}

// HourRange labels a 24h hour as a one-hour span with AM/PM.
func HourRange(h int) string {
	switch {
	case h == 0:
		return "12:00 AM - 1:00 AM (Midnight)"
	case h == 12:
		return "12:00 PM - 1:00 PM (Noon)"
	case h == 11:
		return "11:00 AM - 12:00 PM"
	case h == 23:
		return "11:00 PM - 12:00 AM"
	case h > 0 && h < 11:
		return fmt.Sprintf("%d:00 AM - %d:00 AM", h, h+1)
	case h > 12 && h < 23:
		return fmt.Sprintf("%d:00 PM - %d:00 PM", h-12, h-11)
	}
	return fmt.Sprintf("Hour %d", h)
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var monthNames = []string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}

func weekdayName(p int) string {
	if p >= 1 && p <= len(weekdayNames) {
		return weekdayNames[p-1]
	}
	return fmt.Sprintf("Period %d", p)
}

func monthName(p int) string {
	if p >= 1 && p <= len(monthNames) {
		return monthNames[p-1]
	}
	return fmt.Sprintf("Period %d", p)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
