package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Unknown is the placeholder stored for any value that is missing or failed coercion.
const Unknown = "Unknown"

// Field names a column of the accident table.
type Field string

const (
	CrashTime                  Field = "crash_time"
	TrafficControlDevice       Field = "traffic_control_device"
	WeatherCondition           Field = "weather_condition"
	LightingCondition          Field = "lighting_condition"
	FirstCrashType             Field = "first_crash_type"
	TrafficwayType             Field = "trafficway_type"
	Alignment                  Field = "alignment"
	RoadwaySurfaceCond         Field = "roadway_surface_cond"
	RoadDefect                 Field = "road_defect"
	CrashType                  Field = "crash_type"
	IntersectionRelated        Field = "intersection_related_i"
	Damage                     Field = "damage"
	PrimContributoryCause      Field = "prim_contributory_cause"
	NumUnits                   Field = "num_units"
	MostSevereInjury           Field = "most_severe_injury"
	InjuriesTotal              Field = "injuries_total"
	InjuriesFatal              Field = "injuries_fatal"
	InjuriesIncapacitating     Field = "injuries_incapacitating"
	InjuriesNonIncapacitating  Field = "injuries_non_incapacitating"
	InjuriesReportedNotEvident Field = "injuries_reported_not_evident"
	InjuriesNoIndication       Field = "injuries_no_indication"
	CrashHour                  Field = "crash_hour"
	CrashDayOfWeek             Field = "crash_day_of_week"
	CrashMonth                 Field = "crash_month"
)

// Schema is the fixed column order of the headerless input file.
var Schema = []Field{
	CrashTime, TrafficControlDevice, WeatherCondition, LightingCondition,
	FirstCrashType, TrafficwayType, Alignment, RoadwaySurfaceCond,
	RoadDefect, CrashType, IntersectionRelated, Damage,
	PrimContributoryCause, NumUnits, MostSevereInjury, InjuriesTotal,
	InjuriesFatal, InjuriesIncapacitating, InjuriesNonIncapacitating, InjuriesReportedNotEvident,
	InjuriesNoIndication, CrashHour, CrashDayOfWeek, CrashMonth,
}

var numericFields = map[Field]bool{
	NumUnits:                   true,
	InjuriesTotal:              true,
	InjuriesFatal:              true,
	InjuriesIncapacitating:     true,
	InjuriesNonIncapacitating:  true,
	InjuriesReportedNotEvident: true,
	InjuriesNoIndication:       true,
	CrashHour:                  true,
	CrashDayOfWeek:             true,
	CrashMonth:                 true,
}

// IsNumeric reports whether f is coerced to a Number on load.
func IsNumeric(f Field) bool { return numericFields[f] }

// Number is a coerced numeric cell. Valid is false when the raw value was
// empty or not a number; such a value is never read as zero.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

// ParseNumber coerces s, returning an invalid Number on failure.
func ParseNumber(s string) Number {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

// Int returns the value truncated to an int.
func (n Number) Int() (int, bool) {
	if !n.Valid {
		return 0, false
	}
	return int(n.Value), true
}

// Positive reports a valid value above zero.
func (n Number) Positive() bool { return n.Valid && n.Value > 0 }

func (n Number) String() string {
	if !n.Valid {
		return Unknown
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Record is one accident row. Records are immutable once loaded.
type Record struct {
	CrashTime string
	// CrashAt is zero when CrashTime did not match a known layout.
	CrashAt time.Time

	TrafficControlDevice  string
	WeatherCondition      string
	LightingCondition     string
	FirstCrashType        string
	TrafficwayType        string
	Alignment             string
	RoadwaySurfaceCond    string
	RoadDefect            string
	CrashType             string
	IntersectionRelated   string
	Damage                string
	PrimContributoryCause string
	NumUnits              Number
	MostSevereInjury      string

	InjuriesTotal              Number
	InjuriesFatal              Number
	InjuriesIncapacitating     Number
	InjuriesNonIncapacitating  Number
	InjuriesReportedNotEvident Number
	InjuriesNoIndication       Number

	CrashHour      Number
	CrashDayOfWeek Number
	CrashMonth     Number
}

// Get returns the cell for f as text. Numeric cells render through Number.String.
func (r Record) Get(f Field) string {
	if n, ok := r.Number(f); ok {
		return n.String()
	}
	switch f {
	case CrashTime:
		return r.CrashTime
	case TrafficControlDevice:
		return r.TrafficControlDevice
	case WeatherCondition:
		return r.WeatherCondition
	case LightingCondition:
		return r.LightingCondition
	case FirstCrashType:
		return r.FirstCrashType
	case TrafficwayType:
		return r.TrafficwayType
	case Alignment:
		return r.Alignment
	case RoadwaySurfaceCond:
		return r.RoadwaySurfaceCond
	case RoadDefect:
		return r.RoadDefect
	case CrashType:
		return r.CrashType
	case IntersectionRelated:
		return r.IntersectionRelated
	case Damage:
		return r.Damage
	case PrimContributoryCause:
		return r.PrimContributoryCause
	case MostSevereInjury:
		return r.MostSevereInjury
	}
	return ""
}

// Number returns the numeric cell for f; ok is false when f is not numeric.
func (r Record) Number(f Field) (Number, bool) {
	switch f {
	case NumUnits:
		return r.NumUnits, true
	case InjuriesTotal:
		return r.InjuriesTotal, true
	case InjuriesFatal:
		return r.InjuriesFatal, true
	case InjuriesIncapacitating:
		return r.InjuriesIncapacitating, true
	case InjuriesNonIncapacitating:
		return r.InjuriesNonIncapacitating, true
	case InjuriesReportedNotEvident:
		return r.InjuriesReportedNotEvident, true
	case InjuriesNoIndication:
		return r.InjuriesNoIndication, true
	case CrashHour:
		return r.CrashHour, true
	case CrashDayOfWeek:
		return r.CrashDayOfWeek, true
	case CrashMonth:
		return r.CrashMonth, true
	}
	return Number{}, false
}

// set assigns raw text to f, coercing numeric fields and filling blanks with Unknown.
func (r *Record) set(f Field, raw string) {
	if IsNumeric(f) {
		n := ParseNumber(raw)
		switch f {
		case NumUnits:
			r.NumUnits = n
		case InjuriesTotal:
			r.InjuriesTotal = n
		case InjuriesFatal:
			r.InjuriesFatal = n
		case InjuriesIncapacitating:
			r.InjuriesIncapacitating = n
		case InjuriesNonIncapacitating:
			r.InjuriesNonIncapacitating = n
		case InjuriesReportedNotEvident:
			r.InjuriesReportedNotEvident = n
		case InjuriesNoIndication:
			r.InjuriesNoIndication = n
		case CrashHour:
			r.CrashHour = n
		case CrashDayOfWeek:
			r.CrashDayOfWeek = n
		case CrashMonth:
			r.CrashMonth = n
		}
		return
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		v = Unknown
	}
	switch f {
	case CrashTime:
		r.CrashTime = v
		if t, ok := parseTimeMaybe(v); ok {
			r.CrashAt = t
		}
	case TrafficControlDevice:
		r.TrafficControlDevice = v
	case WeatherCondition:
		r.WeatherCondition = v
	case LightingCondition:
		r.LightingCondition = v
	case FirstCrashType:
		r.FirstCrashType = v
	case TrafficwayType:
		r.TrafficwayType = v
	case Alignment:
		r.Alignment = v
	case RoadwaySurfaceCond:
		r.RoadwaySurfaceCond = v
	case RoadDefect:
		r.RoadDefect = v
	case CrashType:
		r.CrashType = v
	case IntersectionRelated:
		r.IntersectionRelated = v
	case Damage:
		r.Damage = v
	case PrimContributoryCause:
		r.PrimContributoryCause = v
	case MostSevereInjury:
		r.MostSevereInjury = v
	}
}

// NewRecord builds a record from raw cells in Schema order. Missing trailing
// cells are treated as empty.
func NewRecord(cells []string) Record {
	var r Record
	for i, f := range Schema {
		raw := ""
		if i < len(cells) {
			raw = cells[i]
		}
		r.set(f, raw)
	}
	return r
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		"01/02/2006 03:04:05 PM", "1/2/2006 3:04:05 PM", "01/02/2006 03:04 PM",
		time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
