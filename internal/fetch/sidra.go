package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
)

// ErrEmptyResponse indicates the API returned no header row.
var ErrEmptyResponse = errors.New("empty table response")

// FetchTable retrieves a statistics API table. The response is a JSON array
// of objects keyed by field code; the first object maps each code to its
// column label and becomes the header, in the order the API sends it.
func (c *Client) FetchTable(ctx context.Context, url string) (*table.Table, error) {
	var raw []byte
	err := c.get(ctx, url, func(r io.Reader) error {
		b, err := io.ReadAll(r)
		raw = b
		return err
	})
	if err != nil {
		return nil, err
	}
	t, err := DecodeTable(raw)
	if err != nil {
		return nil, err
	}
	log.Debugw("table fetched", "url", url, "columns", len(t.Header), "rows", len(t.Rows))
	return t, nil
}

// DecodeTable parses the API's array-of-objects payload.
func DecodeTable(data []byte) (*table.Table, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyResponse
	}
	codes, labels, err := orderedObject(items[0])
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	rows := make([][]string, 0, len(items)-1)
	for i, it := range items[1:] {
		var obj map[string]any
		if err := json.Unmarshal(it, &obj); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i+1, err)
		}
		row := make([]string, len(codes))
		for j, code := range codes {
			row[j] = cell(obj[code])
		}
		rows = append(rows, row)
	}
	return table.New("sidra", labels, rows), nil
}

// orderedObject returns the keys and string values of a JSON object in
// document order.
func orderedObject(data []byte) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys, vals []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, kt.(string))
		vals = append(vals, cell(v))
	}
	return keys, vals, nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
