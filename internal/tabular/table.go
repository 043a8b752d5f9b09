package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table is one tabular pipeline artifact: an ordered header plus rows keyed
// by column name. Stage boundaries are files, so a Table always round-trips
// through CSV with its column order intact.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// MissingArtifactError means an upstream stage has not produced its output
// yet. Fatal for the invoked stage.
type MissingArtifactError struct {
	Path string
	Hint string
}

func (e *MissingArtifactError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("missing input artifact: %s", e.Path)
	}
	return fmt.Sprintf("missing input artifact: %s (%s)", e.Path, e.Hint)
}

// SchemaViolationError names the columns an artifact is required to carry
// but does not.
type SchemaViolationError struct {
	Artifact string
	Missing  []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s missing required columns: %s", e.Artifact, strings.Join(e.Missing, ", "))
}

// ReadFile loads a CSV artifact. A missing file is reported as
// *MissingArtifactError so callers can distinguish "run the upstream stage
// first" from a malformed file.
func ReadFile(path, hint string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingArtifactError{Path: path, Hint: hint}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: empty file, no header row", path)
	}

	t := &Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteFile writes the table in column order, creating the parent directory
// if needed. Unknown row keys are ignored; missing keys render empty.
func (t *Table) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns fails with *SchemaViolationError listing every required
// column absent from the header. artifact names the file in the diagnostic.
func (t *Table) RequireColumns(artifact string, required ...string) error {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaViolationError{Artifact: artifact, Missing: missing}
	}
	return nil
}

// AddColumns appends any columns not already present, preserving the
// existing order.
func (t *Table) AddColumns(cols ...string) {
	for _, col := range cols {
		if !t.HasColumn(col) {
			t.Columns = append(t.Columns, col)
		}
	}
}

// Get returns the value for col in row, or "" when absent.
func Get(row map[string]string, col string) string {
	return strings.TrimSpace(row[col])
}
