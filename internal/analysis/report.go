package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/features"
)

// Report bundles the four descriptive analyses for text rendering.
type Report struct {
	Name     string
	Stats    BasicStats
	Time     TimeAnalysis
	Severity SeverityAnalysis
	Location LocationAnalysis
	Warnings []string
}

// BuildReport runs every descriptive analysis over e.
func BuildReport(name string, e *features.Encoded) *Report {
	t := e.Table()
	r := &Report{
		Name:     name,
		Stats:    ComputeBasicStats(t),
		Time:     ComputeTimeAnalysis(t),
		Severity: ComputeSeverityAnalysis(e),
		Location: ComputeLocationAnalysis(t),
	}
	if t.Source() == dataset.SourceSample {
		r.Warnings = append(r.Warnings, "dataset file not found; figures come from synthetic sample data")
	}
	if n := t.Len() - sumHours(r.Time.Hourly); n > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d rows have no valid crash_hour", n))
	}
	return r
}

func sumHours(h []HourCount) int {
	n := 0
	for _, c := range h {
		n += c.Accidents
	}
	return n
}

// Section names accepted by Render, in report order.
const (
	SectionStats    = "stats"
	SectionTime     = "time"
	SectionSeverity = "severity"
	SectionLocation = "location"
)

var Sections = []string{SectionStats, SectionTime, SectionSeverity, SectionLocation}

// Markdown renders a compact plain-text report for the terminal.
func (r *Report) Markdown() string { return r.Render(Sections...) }

// Render writes only the named sections, followed by any notes. Unknown
// names are skipped.
func (r *Report) Render(sections ...string) string {
	var b strings.Builder
	for i, name := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		switch name {
		case SectionStats:
			r.writeSummary(&b)
		case SectionTime:
			r.writeTime(&b)
		case SectionSeverity:
			r.writeSeverity(&b)
		case SectionLocation:
			r.writeLocation(&b)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *Report) writeSummary(b *strings.Builder) {
	s := r.Stats
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Accidents: %d (fatal %d, injury %d, property damage only %d)\n",
		s.TotalAccidents, s.FatalAccidents, s.InjuryAccidents, s.PropertyDamageOnly))
	b.WriteString(fmt.Sprintf("Avg injuries per accident: %.3f\n", s.AvgInjuriesPerAccident))
	b.WriteString(fmt.Sprintf("Most common: crash type %s; weather %s; lighting %s\n",
		safeVal(s.MostCommonCrashType), safeVal(s.MostCommonWeather), safeVal(s.MostCommonLighting)))
	if s.DateRange != nil {
		b.WriteString(fmt.Sprintf("Dates: %s to %s\n", s.DateRange.First.Format("2006-01-02"), s.DateRange.Last.Format("2006-01-02")))
	}
}

func (r *Report) writeTime(b *strings.Builder) {
	b.WriteString("[TIME PATTERNS]\n")
	if len(r.Time.Hourly) > 0 {
		b.WriteString("- By hour: ")
		for i, h := range r.Time.Hourly {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%02d(%d)", h.Hour, h.Accidents))
		}
		b.WriteString("\n")
	}
	if len(r.Time.Daily) > 0 {
		b.WriteString("- By day: ")
		for i, d := range r.Time.Daily {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%d)", d.Day, d.Accidents))
		}
		b.WriteString("\n")
	}
	if len(r.Time.Monthly) > 0 {
		b.WriteString("- By month: ")
		for i, m := range r.Time.Monthly {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%d)", m.Month, m.Accidents))
		}
		b.WriteString("\n")
	}
}

func (r *Report) writeSeverity(b *strings.Builder) {
	b.WriteString("[SEVERITY]\n")
	total := r.Stats.TotalAccidents
	for _, c := range r.Severity.Distribution {
		pct := 0.0
		if total > 0 {
			pct = float64(c.Count) * 100 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", c.Severity, c.Count, pct))
	}
	writeCrossTab(b, "weather", r.Severity.ByWeather)
	writeCrossTab(b, "lighting", r.Severity.ByLighting)
}

func (r *Report) writeLocation(b *strings.Builder) {
	b.WriteString("[LOCATION]\n")
	writeTop(b, "Traffic control", r.Location.TrafficControl)
	if len(r.Location.RoadSurface) > 0 {
		b.WriteString("- Road surface: ")
		for i, c := range r.Location.RoadSurface {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%d)", safeVal(c.Condition), c.Count))
		}
		b.WriteString("\n")
	}
	writeTop(b, "Trafficway", r.Location.Trafficway)
}

func writeCrossTab(b *strings.Builder, label string, tab map[string]map[features.Severity]int) {
	if len(tab) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n| %s |", label))
	for _, s := range features.Severities {
		b.WriteString(fmt.Sprintf(" %s |", s))
	}
	b.WriteString("\n|---|")
	for range features.Severities {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, key := range sortedKeys(tab) {
		row := tab[key]
		b.WriteString(fmt.Sprintf("| %s |", safeVal(key)))
		for _, s := range features.Severities {
			b.WriteString(fmt.Sprintf(" %d |", row[s]))
		}
		b.WriteString("\n")
	}
}

func writeTop(b *strings.Builder, label string, tops []TypeCount) {
	if len(tops) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("- %s: ", label))
	for i, c := range tops {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s(%d)", safeVal(c.Type), c.Count))
	}
	b.WriteString("\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
