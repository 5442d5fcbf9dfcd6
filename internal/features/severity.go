package features

import "github.com/KaramelBytes/crashinsight/internal/dataset"

// Severity is the derived outcome label of an accident.
type Severity string

const (
	Fatal         Severity = "Fatal"
	SeriousInjury Severity = "Serious Injury"
	MinorInjury   Severity = "Minor Injury"
	NoInjury      Severity = "No Injury"
)

// Severities lists every label from most to least severe.
var Severities = []Severity{Fatal, SeriousInjury, MinorInjury, NoInjury}

// SeverityOf labels a record from its fatal, incapacitating and
// non-incapacitating counters only. Invalid counters are not positive.
func SeverityOf(r dataset.Record) Severity {
	switch {
	case r.InjuriesFatal.Positive():
		return Fatal
	case r.InjuriesIncapacitating.Positive():
		return SeriousInjury
	case r.InjuriesNonIncapacitating.Positive():
		return MinorInjury
	default:
		return NoInjury
	}
}
