package features

import (
	"sort"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

// NominalFields are label-encoded once per load.
var NominalFields = []dataset.Field{
	dataset.TrafficControlDevice,
	dataset.WeatherCondition,
	dataset.LightingCondition,
	dataset.FirstCrashType,
	dataset.TrafficwayType,
	dataset.Alignment,
	dataset.RoadwaySurfaceCond,
	dataset.RoadDefect,
	dataset.PrimContributoryCause,
	dataset.MostSevereInjury,
}

// Codebook is a bijection between the observed values of one field and
// integer codes. Codes follow sorted value order.
type Codebook struct {
	field  dataset.Field
	values []string
	codes  map[string]int
}

func newCodebook(field dataset.Field, column []string) *Codebook {
	seen := make(map[string]struct{}, 16)
	for _, v := range column {
		seen[v] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	return &Codebook{field: field, values: values, codes: codes}
}

// Field is the encoded column.
func (c *Codebook) Field() dataset.Field { return c.field }

// Len is the number of distinct values.
func (c *Codebook) Len() int { return len(c.values) }

// Code returns the integer for v.
func (c *Codebook) Code(v string) (int, bool) {
	code, ok := c.codes[v]
	return code, ok
}

// Value returns the string for code.
func (c *Codebook) Value(code int) (string, bool) {
	if code < 0 || code >= len(c.values) {
		return "", false
	}
	return c.values[code], true
}

// Values returns a copy of the value list in code order.
func (c *Codebook) Values() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// Encoding holds one Codebook per nominal field.
type Encoding struct {
	books map[dataset.Field]*Codebook
}

// Codebook returns the table for f, or nil when f is not encoded.
func (e *Encoding) Codebook(f dataset.Field) *Codebook { return e.books[f] }

// Encoded is the table plus everything derived from it at load time. It is
// built exactly once by Encode and never changes afterwards.
type Encoded struct {
	table    *dataset.Table
	encoding *Encoding
	labels   []Severity
	codes    map[dataset.Field][]int
}

// Encode derives severity labels and <field>_encoded columns for t.
func Encode(t *dataset.Table) *Encoded {
	enc := &Encoded{
		table:    t,
		encoding: &Encoding{books: make(map[dataset.Field]*Codebook, len(NominalFields))},
		labels:   make([]Severity, t.Len()),
		codes:    make(map[dataset.Field][]int, len(NominalFields)),
	}
	t.Each(func(i int, r dataset.Record) {
		enc.labels[i] = SeverityOf(r)
	})
	for _, f := range NominalFields {
		column := t.Column(f)
		book := newCodebook(f, column)
		codes := make([]int, len(column))
		for i, v := range column {
			codes[i] = book.codes[v]
		}
		enc.encoding.books[f] = book
		enc.codes[f] = codes
	}
	return enc
}

// Table returns the source table.
func (e *Encoded) Table() *dataset.Table { return e.table }

// Encoding returns the per-field code tables.
func (e *Encoded) Encoding() *Encoding { return e.encoding }

// Len is the row count.
func (e *Encoded) Len() int { return len(e.labels) }

// Label returns the severity of row i.
func (e *Encoded) Label(i int) Severity { return e.labels[i] }

// Labels returns a copy of all severity labels in row order.
func (e *Encoded) Labels() []Severity {
	out := make([]Severity, len(e.labels))
	copy(out, e.labels)
	return out
}

// Value returns feature f for row i; ok is false when the cell is missing.
func (e *Encoded) Value(i int, f Feature) (float64, bool) {
	if f.Encoded {
		codes, ok := e.codes[f.Field]
		if !ok {
			return 0, false
		}
		return float64(codes[i]), true
	}
	n, ok := e.table.At(i).Number(f.Field)
	if !ok || !n.Valid {
		return 0, false
	}
	return n.Value, true
}

// Matrix projects fs for every row that has no missing feature. rows holds
// the source row index of each matrix row.
func (e *Encoded) Matrix(fs []Feature) (x [][]float64, rows []int) {
	for i := 0; i < e.Len(); i++ {
		vec := make([]float64, len(fs))
		complete := true
		for j, f := range fs {
			v, ok := e.Value(i, f)
			if !ok {
				complete = false
				break
			}
			vec[j] = v
		}
		if complete {
			x = append(x, vec)
			rows = append(rows, i)
		}
	}
	return x, rows
}

// Column returns the <field>_encoded codes for f in row order.
func (e *Encoded) Column(f dataset.Field) ([]int, bool) {
	codes, ok := e.codes[f]
	if !ok {
		return nil, false
	}
	out := make([]int, len(codes))
	copy(out, codes)
	return out, true
}
