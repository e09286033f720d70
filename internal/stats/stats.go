// Package stats reports how metadata values are distributed over files.
package stats

import (
	"sort"

	"deduper/internal/catalog"
)

// NoneValue labels files whose field is unresolved.
const NoneValue = "none"

// Row is one distinct value of a field.
type Row struct {
	Value    string  `json:"value" yaml:"value"`
	Count    int     `json:"count" yaml:"count"`
	Bytes    int64   `json:"bytes" yaml:"bytes"`
	CountPct float64 `json:"count_pct" yaml:"count_pct"`
	SizePct  float64 `json:"size_pct" yaml:"size_pct"`
}

// Table is the distribution of one field.
type Table struct {
	Field      string `json:"field" yaml:"field"`
	Rows       []Row  `json:"rows" yaml:"rows"`
	TotalCount int    `json:"total_count" yaml:"total_count"`
	TotalBytes int64  `json:"total_bytes" yaml:"total_bytes"`
}

// Compute builds the distribution of field over entries, most common first.
func Compute(entries []*catalog.Entry, field string) Table {
	t := Table{Field: field}
	index := make(map[string]int)
	for _, e := range entries {
		value := e.Field(field)
		if value == "" {
			value = NoneValue
		}
		i, ok := index[value]
		if !ok {
			i = len(t.Rows)
			index[value] = i
			t.Rows = append(t.Rows, Row{Value: value})
		}
		t.Rows[i].Count++
		t.Rows[i].Bytes += e.Size
		t.TotalCount++
		t.TotalBytes += e.Size
	}
	for i := range t.Rows {
		if t.TotalCount > 0 {
			t.Rows[i].CountPct = 100 * float64(t.Rows[i].Count) / float64(t.TotalCount)
		}
		if t.TotalBytes > 0 {
			t.Rows[i].SizePct = 100 * float64(t.Rows[i].Bytes) / float64(t.TotalBytes)
		}
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		if t.Rows[i].Count != t.Rows[j].Count {
			return t.Rows[i].Count > t.Rows[j].Count
		}
		return t.Rows[i].Value < t.Rows[j].Value
	})
	return t
}

// ComputeAll builds one table per field.
func ComputeAll(entries []*catalog.Entry, fields []string) []Table {
	out := make([]Table, 0, len(fields))
	for _, f := range fields {
		out = append(out, Compute(entries, f))
	}
	return out
}
