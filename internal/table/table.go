// Package table holds raw tabular data read from CSV or XLSX sources and the
// column-level operations the preparation stages need.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported indicates a file format no registered reader handles.
var ErrUnsupported = errors.New("unsupported tabular format")

// MissingColumnError reports a required column absent from a table header.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
	}
	return fmt.Sprintf("column %q not found", e.Column)
}

// Table is a header plus string rows. Every row has len(Header) cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// New builds a table, padding or truncating rows to the header width.
func New(name string, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Header: append([]string(nil), header...)}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(header)))
	}
	return t
}

func fit(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// Index returns the position of the named column, matched case-insensitively.
func (t *Table) Index(name string) (int, error) {
	want := normName(name)
	for i, h := range t.Header {
		if normName(h) == want {
			return i, nil
		}
	}
	return -1, &MissingColumnError{Table: t.Name, Column: name}
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, err := t.Index(name)
	return err == nil
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.Index(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Filter returns the rows whose column equals value (after trimming spaces).
func (t *Table) Filter(column, value string) (*Table, error) {
	idx, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(value)
	out := &Table{Name: t.Name, Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		if strings.TrimSpace(r[idx]) == want {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out, nil
}

// Rename returns a copy with one column renamed.
func (t *Table) Rename(from, to string) (*Table, error) {
	idx, err := t.Index(from)
	if err != nil {
		return nil, err
	}
	out := t.clone()
	out.Header[idx] = to
	return out, nil
}

// Select returns a copy holding only the named columns, in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	out := &Table{Name: t.Name, Header: make([]string, len(columns))}
	for i, idx := range idxs {
		out.Header[i] = t.Header[idx]
	}
	out.Rows = make([][]string, len(t.Rows))
	for ri, r := range t.Rows {
		row := make([]string, len(idxs))
		for i, idx := range idxs {
			row[i] = r[idx]
		}
		out.Rows[ri] = row
	}
	return out, nil
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	skip := map[int]bool{}
	for _, c := range columns {
		if idx, err := t.Index(c); err == nil {
			skip[idx] = true
		}
	}
	keep := make([]string, 0, len(t.Header))
	for i, h := range t.Header {
		if !skip[i] {
			keep = append(keep, h)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

func (t *Table) clone() *Table {
	out := &Table{Name: t.Name, Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// Concat stacks tables, aligning columns by name. The header is the union of
// all headers in first-seen order; cells absent from a source are empty.
func Concat(name string, tables ...*Table) *Table {
	out := &Table{Name: name}
	pos := map[string]int{}
	for _, t := range tables {
		for _, h := range t.Header {
			k := normName(h)
			if _, ok := pos[k]; !ok {
				pos[k] = len(out.Header)
				out.Header = append(out.Header, h)
			}
		}
	}
	for _, t := range tables {
		for _, r := range t.Rows {
			row := make([]string, len(out.Header))
			for i, h := range t.Header {
				row[pos[normName(h)]] = r[i]
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
