package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is looked up in the working directory and next to the executable.
const DefaultFileName = "traffic_accidents.csv"

// EnvDatasetPath overrides the candidate list when set.
const EnvDatasetPath = "CRASHINSIGHT_DATASET_PATH"

// ErrDatasetNotFound is returned when no candidate path exists.
var ErrDatasetNotFound = errors.New("dataset file not found")

// ParseError reports a malformed row. Row is 1-based.
type ParseError struct {
	Row int
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Options controls how the dataset is located and read.
type Options struct {
	// Path is tried before the default candidates.
	Path string
	// Delimiter for the file. If 0, sniffed from the extension.
	Delimiter rune
	// AllowSample falls back to GenerateSample when no file is found.
	AllowSample bool
	// SampleSize and SampleSeed configure the fallback; zero values mean 1000 and 42.
	SampleSize int
	SampleSeed int64
}

// Candidates returns the ordered list of paths Open will try.
func Candidates(path string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(path)
	add(os.Getenv(EnvDatasetPath))
	add(DefaultFileName)
	add("." + string(filepath.Separator) + DefaultFileName)
	if exe, err := os.Executable(); err == nil {
		add(filepath.Join(filepath.Dir(exe), DefaultFileName))
	}
	return out
}

// Resolve returns the first candidate that exists as a regular file.
func Resolve(candidates []string) (string, error) {
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrDatasetNotFound, strings.Join(candidates, ", "))
}

// Open locates and loads the dataset, or synthesizes sample rows when allowed.
func Open(opt Options) (*Table, error) {
	path, err := Resolve(Candidates(opt.Path))
	if err != nil {
		if errors.Is(err, ErrDatasetNotFound) && opt.AllowSample {
			size, seed := opt.SampleSize, opt.SampleSeed
			if size <= 0 {
				size = 1000
			}
			if seed == 0 {
				seed = 42
			}
			return GenerateSample(size, seed), nil
		}
		return nil, err
	}
	return LoadCSV(path, opt.Delimiter)
}

// LoadCSV reads a headerless delimited file laid out as Schema. Every row must
// carry exactly len(Schema) cells; one bad row fails the whole load.
func LoadCSV(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	t, err := ReadCSV(f, delim)
	if err != nil {
		return nil, err
	}
	t.path = path
	return t, nil
}

// ReadCSV parses rows from r.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if delim != 0 {
		cr.Comma = delim
	}

	var records []Record
	row := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Row: row + 1, Err: err}
		}
		row++
		if len(rec) != len(Schema) {
			return nil, &ParseError{Row: row, Err: fmt.Errorf("expected %d fields, got %d", len(Schema), len(rec))}
		}
		records = append(records, NewRecord(rec))
	}
	return NewTable(records, SourceFile, ""), nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
