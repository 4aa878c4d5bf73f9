package table

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnValues lists the distinct values of one column in first-seen order.
type ColumnValues struct {
	Name   string
	Values []string
	Counts map[string]int
}

// Profile summarizes the distinct values of every column of a table.
type Profile struct {
	Name    string
	Rows    int
	Columns []ColumnValues
}

// Describe computes the distinct values per column.
func Describe(t *Table) *Profile {
	p := &Profile{Name: t.Name, Rows: len(t.Rows)}
	for j, h := range t.Header {
		cv := ColumnValues{Name: h, Counts: map[string]int{}}
		for _, r := range t.Rows {
			v := strings.TrimSpace(r[j])
			if _, seen := cv.Counts[v]; !seen {
				cv.Values = append(cv.Values, v)
			}
			cv.Counts[v]++
		}
		p.Columns = append(p.Columns, cv)
	}
	return p
}

// Markdown renders up to maxValues distinct values per column, most frequent first.
func (p *Profile) Markdown(maxValues int) string {
	if maxValues <= 0 {
		maxValues = 20
	}
	var b strings.Builder
	b.WriteString("[TABLE PROFILE]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n", p.Rows, len(p.Columns)))
	for _, c := range p.Columns {
		b.WriteString(fmt.Sprintf("\n- %s (unique=%d)\n", safeName(c.Name), len(c.Values)))
		vals := append([]string(nil), c.Values...)
		sort.SliceStable(vals, func(i, j int) bool { return c.Counts[vals[i]] > c.Counts[vals[j]] })
		lim := maxValues
		if len(vals) < lim {
			lim = len(vals)
		}
		for _, v := range vals[:lim] {
			b.WriteString(fmt.Sprintf("  • %s (%d)\n", safeVal(v), c.Counts[v]))
		}
		if len(vals) > lim {
			b.WriteString(fmt.Sprintf("  … %d more\n", len(vals)-lim))
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	if s == "" {
		return "(empty)"
	}
	return strings.ReplaceAll(s, "\n", " ")
}
