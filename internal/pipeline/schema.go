package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Generator is the gateway surface the stages depend on. Satisfied by
// *llm.Client; tests substitute fakes.
type Generator interface {
	GenerateJSON(system, user string, maxTokens int64, temperature float64) (json.RawMessage, error)
	GenerateText(system, user string, maxTokens int64, temperature float64) (string, error)
}

const (
	DefaultVendor = "Aceru Studio"
	DefaultPrice  = "19.99"

	slugFallback = "item"
	maxTitleLen  = 70
)

// SeedColumns is the header contract of the seed artifact.
var SeedColumns = []string{"title", "features", "materials", "use_cases", "price", "tags", "sku"}

// CopyColumns is the intermediate artifact written by the enrichment stage.
var CopyColumns = []string{
	"Title", "Body (HTML)", "Vendor", "Type", "Tags", "Published",
	"Option1 Name", "Option1 Value", "Variant SKU", "Variant Price",
	"Variant Inventory Qty", "Variant Inventory Policy", "Variant Fulfillment Service",
	"Variant Requires Shipping", "Variant Taxable", "Image Src",
	"Variant Grams", "Cost per item", "Status",
}

// ImportColumns is the fixed import schema the normalizer targets.
var ImportColumns = []string{
	"Handle", "Title", "Body (HTML)", "Vendor", "Type", "Tags", "Published",
	"Option1 Name", "Option1 Value", "Variant SKU", "Variant Grams",
	"Variant Inventory Tracker", "Variant Inventory Qty", "Variant Inventory Policy",
	"Variant Fulfillment Service", "Variant Price", "Variant Compare At Price",
	"Variant Requires Shipping", "Variant Taxable", "Image Src", "Image Position",
	"Gift Card", "SEO Title", "SEO Description", "Status",
}

// ImageColumns is the image artifact consumed by the merge stage.
var ImageColumns = []string{"Handle", "Image Src", "Image Alt Text", "Image Position"}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the handle used as the join key across stages. Pure and
// idempotent: later stages re-derive handles from titles instead of
// persisting them, so Slugify(Slugify(s)) must equal Slugify(s).
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return slugFallback
	}
	return s
}

// truncate caps s at n characters, not bytes, so a cut never splits a
// multibyte character into invalid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
