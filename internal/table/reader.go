package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Options controls how a tabular file is read.
type Options struct {
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t' from the header line.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used when empty.
	Sheet      string
	SheetIndex int
	// HeaderMarker, when set, skips rows until one contains this cell value and
	// uses that row as header. Spreadsheets often carry title rows above it.
	HeaderMarker string
}

// Reader reads one tabular format.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt Options) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ReadFile selects a reader based on the file extension.
func ReadFile(path string, opt Options) (*Table, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// headerAt finds the header row index for the marker; 0 when marker is empty.
func headerAt(rows [][]string, marker string) (int, bool) {
	if marker == "" {
		return 0, len(rows) > 0
	}
	want := normName(marker)
	for i, r := range rows {
		for _, c := range r {
			if normName(c) == want {
				return i, true
			}
		}
	}
	return -1, false
}

func fromRows(name string, rows [][]string, marker string) (*Table, error) {
	if len(rows) == 0 {
		return &Table{Name: name}, nil
	}
	at, ok := headerAt(rows, marker)
	if !ok {
		return nil, &MissingColumnError{Table: name, Column: marker}
	}
	header := make([]string, len(rows[at]))
	for i, h := range rows[at] {
		header[i] = strings.TrimSpace(h)
	}
	return New(name, header, rows[at+1:]), nil
}
