package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
	"github.com/KaramelBytes/bizratio-cli/internal/utils"
)

// Download saves url to path. The body is streamed into a temp file in the
// destination directory and renamed into place only after a complete read.
func (c *Client) Download(ctx context.Context, url, path string) error {
	dir := filepath.Dir(path)
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	var written int64
	err := c.get(ctx, url, func(r io.Reader) error {
		tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())
		n, err := io.Copy(tmp, r)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("download %s: %w", filepath.Base(path), err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("atomic rename: %w", err)
		}
		written = n
		return nil
	})
	if err != nil {
		return err
	}
	log.Debugw("file downloaded", "url", url, "path", path, "bytes", written)
	return nil
}

// Partition is an inclusive year range written to its own file.
type Partition struct {
	From, To int
	Path     string
}

// SplitByYear writes the rows of t whose year column falls inside each
// partition. Rows with an unparseable year are left out of every partition.
func SplitByYear(t *table.Table, yearCol string, parts []Partition) error {
	yi, err := t.Index(yearCol)
	if err != nil {
		return err
	}
	for _, p := range parts {
		out := &table.Table{Name: filepath.Base(p.Path), Header: t.Header}
		for _, r := range t.Rows {
			y, ok := table.ParseYear(r[yi])
			if ok && y >= p.From && y <= p.To {
				out.Rows = append(out.Rows, r)
			}
		}
		if err := table.WriteCSV(p.Path, out); err != nil {
			return fmt.Errorf("write %d-%d partition: %w", p.From, p.To, err)
		}
		log.Debugw("partition written", "path", p.Path, "rows", len(out.Rows))
	}
	return nil
}
