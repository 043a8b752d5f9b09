package pipeline

import (
	"errors"
	"strings"

	"shopforge/internal/tabular"
)

var requiredProductCols = []string{"Handle", "Title", "Body (HTML)", "Vendor", "Status"}

// Merge combines a product table with its image table: every product row
// first, unchanged, then one trailing row per image carrying only the
// handle and image fields. The import process groups the trailing rows back
// onto products by handle, so this shape is load-bearing.
//
// urlMap optionally resolves image filenames to uploaded-file URLs;
// unresolved filenames pass through untouched.
func Merge(products, images *tabular.Table, urlMap map[string]string) (*tabular.Table, error) {
	if err := products.RequireColumns("products CSV", requiredProductCols...); err != nil {
		return nil, err
	}
	if err := images.RequireColumns("images CSV", ImageColumns...); err != nil {
		return nil, err
	}

	out := &tabular.Table{Columns: append([]string(nil), products.Columns...)}
	out.AddColumns("Image Src", "Image Alt Text", "Image Position")

	for _, r := range products.Rows {
		row := make(map[string]string, len(out.Columns))
		for _, col := range out.Columns {
			row[col] = r[col]
		}
		out.Rows = append(out.Rows, row)
	}

	for _, r := range images.Rows {
		row := make(map[string]string, len(out.Columns))
		for _, col := range out.Columns {
			row[col] = ""
		}
		src := tabular.Get(r, "Image Src")
		if url, ok := urlMap[src]; ok {
			src = url
		}
		row["Handle"] = r["Handle"]
		row["Image Src"] = src
		row["Image Alt Text"] = r["Image Alt Text"]
		row["Image Position"] = r["Image Position"]
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// ReadURLMap loads the optional filename -> url artifact. The map is
// optional, so a missing file yields an empty map; a file that exists but
// cannot be parsed is reported rather than silently skipped.
func ReadURLMap(path string) (map[string]string, error) {
	t, err := tabular.ReadFile(path, "")
	if err != nil {
		var missing *tabular.MissingArtifactError
		if errors.As(err, &missing) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return LoadURLMap(t), nil
}

// LoadURLMap reads the optional new_filename -> url mapping. Headers match
// case-insensitively; rows with a blank filename or URL are skipped.
func LoadURLMap(t *tabular.Table) map[string]string {
	var fnCol, urlCol string
	for _, c := range t.Columns {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "new_filename":
			fnCol = c
		case "url":
			urlCol = c
		}
	}
	out := make(map[string]string)
	if fnCol == "" || urlCol == "" {
		return out
	}
	for _, r := range t.Rows {
		fn := tabular.Get(r, fnCol)
		url := tabular.Get(r, urlCol)
		if fn != "" && url != "" {
			out[fn] = url
		}
	}
	return out
}
