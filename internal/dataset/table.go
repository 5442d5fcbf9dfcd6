package dataset

// Source tells downstream code where the rows came from.
type Source string

const (
	SourceFile   Source = "file"
	SourceSample Source = "sample"
)

// Table is a read-only collection of records. Nothing mutates a Table after
// construction, so it is safe to share across goroutines.
type Table struct {
	records []Record
	source  Source
	path    string
}

// NewTable wraps records. The slice is owned by the table afterwards.
func NewTable(records []Record, source Source, path string) *Table {
	return &Table{records: records, source: source, path: path}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Source reports whether the table was read from a file or synthesized.
func (t *Table) Source() Source { return t.source }

// Path is the file the table was loaded from, empty for sample data.
func (t *Table) Path() string { return t.path }

// At returns a copy of record i.
func (t *Table) At(i int) Record { return t.records[i] }

// Each calls fn for every record in load order.
func (t *Table) Each(fn func(i int, r Record)) {
	for i, r := range t.records {
		fn(i, r)
	}
}

// Column projects a field as text.
func (t *Table) Column(f Field) []string {
	out := make([]string, len(t.records))
	for i, r := range t.records {
		out[i] = r.Get(f)
	}
	return out
}

// Numbers projects a numeric field. For non-numeric fields every entry is invalid.
func (t *Table) Numbers(f Field) []Number {
	out := make([]Number, len(t.records))
	for i, r := range t.records {
		out[i], _ = r.Number(f)
	}
	return out
}

// Filter returns a new table holding the records keep accepts.
func (t *Table) Filter(keep func(Record) bool) *Table {
	var out []Record
	for _, r := range t.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{records: out, source: t.source, path: t.path}
}
