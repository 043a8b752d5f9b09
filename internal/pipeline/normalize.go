package pipeline

import (
	"log"

	"shopforge/internal/tabular"
)

// importDefaults are the declared defaults applied when a target column is
// absent from the source artifact. Columns not listed default to "".
var importDefaults = map[string]string{
	"Vendor":                      DefaultVendor,
	"Published":                   "TRUE",
	"Option1 Name":                "Title",
	"Option1 Value":               "Default Title",
	"Variant Inventory Qty":       "10",
	"Variant Inventory Policy":    "deny",
	"Variant Fulfillment Service": "manual",
	"Variant Price":               DefaultPrice,
	"Variant Requires Shipping":   "TRUE",
	"Variant Taxable":             "TRUE",
	"Gift Card":                   "FALSE",
	"Status":                      "active",
}

// Normalize maps an arbitrary intermediate artifact onto the fixed import
// schema: matching columns are copied, unmatched columns take their
// declared default, and Handle / SEO fields are derived from Title when
// empty. Normalizing an already-normalized table is a no-op.
//
// Title is the only non-defaultable column: its absence from the source
// header is the stage's sole fatal condition.
func Normalize(in *tabular.Table) (*tabular.Table, error) {
	if err := in.RequireColumns("products CSV", "Title"); err != nil {
		return nil, err
	}

	defaultedPrice := 0
	out := &tabular.Table{Columns: ImportColumns}
	for _, src := range in.Rows {
		title := tabular.Get(src, "Title")
		row := make(map[string]string, len(ImportColumns))
		for _, col := range ImportColumns {
			if in.HasColumn(col) {
				row[col] = src[col]
			} else {
				row[col] = importDefaults[col]
			}
		}
		if row["Handle"] == "" {
			row["Handle"] = Slugify(title)
		}
		if row["SEO Title"] == "" {
			row["SEO Title"] = truncate(title, 70)
		}
		if row["SEO Description"] == "" {
			row["SEO Description"] = truncate("High-quality "+title, 140)
		}
		if !in.HasColumn("Variant Price") {
			defaultedPrice++
		}
		out.Rows = append(out.Rows, row)
	}

	if defaultedPrice > 0 {
		// Source had no price column at all; the declared default was
		// used. Logged so a stale default does not go unnoticed.
		log.Printf("stage=normalize default_price_rows=%d price=%s", defaultedPrice, DefaultPrice)
	}
	return out, nil
}
