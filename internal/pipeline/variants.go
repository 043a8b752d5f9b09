package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"shopforge/internal/tabular"
)

// Axis is one option dimension, e.g. {"Color", ["black","white","navy"]}.
// Axis order is significant: it fixes both column layout (Option1, Option2,
// ...) and emission order of the cartesian product.
type Axis struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// VariantOptions configures the expansion of one product table.
type VariantOptions struct {
	Axes         []Axis
	PriceByValue map[string]string // axis value -> price override; later axes win
	SKUPrefix    string
	ProductType  string
	InventoryQty string
}

// ParentFields are the product-level attributes the import format expects
// populated on exactly the first row of each handle group.
type ParentFields struct {
	Handle, Title, Body, Vendor, Type, Tags string
	Published, SEOTitle, SEODescription     string
	Status                                  string
}

// OptionValue is one axis name/value pair carried by a variant.
type OptionValue struct {
	Name, Value string
}

// VariantRow is one axis-value combination. Parent is non-nil only at group
// index 0; the "shared fields blank on later rows" convention is a property
// of the CSV flattening, not of the model.
type VariantRow struct {
	Parent  *ParentFields
	Options []OptionValue
	SKU     string
	Price   string
}

// Expand produces the cartesian product of the axes for one base row, in
// axis order with the last axis varying fastest. Output order and SKUs are
// deterministic so a re-run re-imports without SKU collisions.
func Expand(parent ParentFields, basePrice string, opts VariantOptions) []VariantRow {
	if len(opts.Axes) == 0 {
		return nil
	}
	total := 1
	for _, ax := range opts.Axes {
		total *= len(ax.Values)
	}

	rows := make([]VariantRow, 0, total)
	idx := make([]int, len(opts.Axes))
	for n := 0; n < total; n++ {
		options := make([]OptionValue, len(opts.Axes))
		for i, ax := range opts.Axes {
			options[i] = OptionValue{Name: ax.Name, Value: ax.Values[idx[i]]}
		}

		price := basePrice
		for _, ov := range options {
			if p, ok := opts.PriceByValue[ov.Value]; ok {
				price = p
			}
		}

		row := VariantRow{
			Options: options,
			SKU:     variantSKU(opts.SKUPrefix, options),
			Price:   price,
		}
		if n == 0 {
			p := parent
			row.Parent = &p
		}
		rows = append(rows, row)

		// Odometer increment, rightmost axis fastest.
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(opts.Axes[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return rows
}

// variantSKU concatenates the prefix with abbreviated axis values: every
// value except the last contributes its uppercased first letter, the last
// is appended whole. prefix TEE + (black, S) -> TEE-BS.
func variantSKU(prefix string, options []OptionValue) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("-")
	for i, ov := range options {
		v := strings.ToUpper(strings.TrimSpace(ov.Value))
		if v == "" {
			continue
		}
		if i < len(options)-1 {
			r, _ := utf8.DecodeRuneInString(v)
			b.WriteRune(r)
		} else {
			b.WriteString(v)
		}
	}
	return b.String()
}

// ExpandTable expands every row of the copy artifact into the import schema
// extended with one Name/Value column pair per axis.
func ExpandTable(in *tabular.Table, opts VariantOptions) (*tabular.Table, error) {
	if err := in.RequireColumns("product copy CSV", "Title"); err != nil {
		return nil, err
	}
	if len(opts.Axes) < 1 || len(opts.Axes) > 3 {
		return nil, fmt.Errorf("variant axes must number 1-3, got %d", len(opts.Axes))
	}
	if opts.InventoryQty == "" {
		opts.InventoryQty = "20"
	}

	out := &tabular.Table{Columns: variantColumns(len(opts.Axes))}
	for _, r := range in.Rows {
		title := tabular.Get(r, "Title")
		vendor := tabular.Get(r, "Vendor")
		if vendor == "" {
			vendor = DefaultVendor
		}
		prodType := tabular.Get(r, "Type")
		if prodType == "" {
			prodType = opts.ProductType
		}
		status := tabular.Get(r, "Status")
		if status == "" {
			status = "active"
		}
		basePrice := tabular.Get(r, "Variant Price")
		if basePrice == "" {
			basePrice = DefaultPrice
		}

		parent := ParentFields{
			Handle:         Slugify(title),
			Title:          title,
			Body:           r["Body (HTML)"],
			Vendor:         vendor,
			Type:           prodType,
			Tags:           tabular.Get(r, "Tags"),
			Published:      "TRUE",
			SEOTitle:       truncate(title, 70),
			SEODescription: truncate("High-quality "+title, 140),
			Status:         status,
		}

		for _, v := range Expand(parent, basePrice, opts) {
			out.Rows = append(out.Rows, flattenVariant(v, opts.InventoryQty))
		}
	}
	return out, nil
}

// variantColumns is the import schema with OptionN Name/Value pairs for
// each axis in place of the single Option1 pair.
func variantColumns(axes int) []string {
	cols := make([]string, 0, len(ImportColumns)+2*(axes-1))
	for _, col := range ImportColumns {
		switch col {
		case "Option1 Name":
			for i := 1; i <= axes; i++ {
				cols = append(cols, fmt.Sprintf("Option%d Name", i), fmt.Sprintf("Option%d Value", i))
			}
		case "Option1 Value":
			// emitted alongside Option1 Name above
		default:
			cols = append(cols, col)
		}
	}
	return cols
}

func flattenVariant(v VariantRow, inventoryQty string) map[string]string {
	row := map[string]string{
		"Variant SKU":                 v.SKU,
		"Variant Price":               v.Price,
		"Variant Grams":               "",
		"Variant Inventory Tracker":   "",
		"Variant Inventory Qty":       inventoryQty,
		"Variant Inventory Policy":    "deny",
		"Variant Fulfillment Service": "manual",
		"Variant Compare At Price":    "",
		"Variant Requires Shipping":   "TRUE",
		"Variant Taxable":             "TRUE",
		"Image Src":                   "",
		"Image Position":              "",
		"Gift Card":                   "FALSE",
	}
	for i, ov := range v.Options {
		row[fmt.Sprintf("Option%d Name", i+1)] = ov.Name
		row[fmt.Sprintf("Option%d Value", i+1)] = ov.Value
	}
	if v.Parent != nil {
		row["Handle"] = v.Parent.Handle
		row["Title"] = v.Parent.Title
		row["Body (HTML)"] = v.Parent.Body
		row["Vendor"] = v.Parent.Vendor
		row["Type"] = v.Parent.Type
		row["Tags"] = v.Parent.Tags
		row["Published"] = v.Parent.Published
		row["SEO Title"] = v.Parent.SEOTitle
		row["SEO Description"] = v.Parent.SEODescription
		row["Status"] = v.Parent.Status
	}
	return row
}
