package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
)

// ObjectStore is the subset of storage.Storage the CSV export needs.
type ObjectStore interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string) (string, error)
}

// File is one uploaded table.
type File struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	URL   string `json:"url"`
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Values()); err != nil {
		return fmt.Errorf("failed to write %s csv: %w", t.Name, err)
	}
	return nil
}

// UploadCSV stores every table as prefix/<month>/<table>.csv and returns
// download links.
func UploadCSV(ctx context.Context, store ObjectStore, prefix string, snap Snapshot) ([]File, error) {
	files := make([]File, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t); err != nil {
			return nil, err
		}

		key := path.Join(prefix, snap.Month, slug(t.Name)+".csv")
		if err := store.Save(ctx, key, &buf, "text/csv"); err != nil {
			return nil, err
		}

		url, err := store.PresignedURL(ctx, key)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Table: t.Name, Key: key, URL: url})
	}
	return files, nil
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
