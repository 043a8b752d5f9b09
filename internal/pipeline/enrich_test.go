package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"shopforge/internal/tabular"
)

// fakeGen is the test double for the gateway, shared across the package's
// tests. A non-nil err fails every call.
type fakeGen struct {
	jsonResp  string
	textResp  string
	err       error
	jsonCalls int
	textCalls int
	lastUser  string
}

func (f *fakeGen) GenerateJSON(system, user string, maxTokens int64, temperature float64) (json.RawMessage, error) {
	f.jsonCalls++
	f.lastUser = user
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.jsonResp), nil
}

func (f *fakeGen) GenerateText(system, user string, maxTokens int64, temperature float64) (string, error) {
	f.textCalls++
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.textResp, nil
}

func seedTable() *tabular.Table {
	return &tabular.Table{
		Columns: SeedColumns,
		Rows: []map[string]string{
			{
				"title":     "Minimal Desk Mat",
				"features":  "stain-resistant, non-slip base, 80x30cm",
				"materials": "Vegan leather top, rubber base",
				"use_cases": "home office, gaming",
				"price":     "24.90",
				"tags":      "desk-mat, minimalist",
				"sku":       "MAT-001",
			},
			{
				"title":     "Walnut Cable Tray",
				"features":  "under-desk mount, hides power strips",
				"materials": "Solid walnut",
				"use_cases": "cable management",
				"price":     "",
				"tags":      "cable-tray",
				"sku":       "TRAY-001",
			},
		},
	}
}

func TestEnrichProductsFallback(t *testing.T) {
	gen := &fakeGen{err: errors.New("model unreachable")}
	out, fallbacks := EnrichProducts(seedTable(), gen, "Aceru Studio")

	if len(out.Rows) != 2 {
		t.Fatalf("rows = %d, want every seed row to survive", len(out.Rows))
	}
	if fallbacks != 2 {
		t.Fatalf("fallbacks = %d, want 2", fallbacks)
	}

	body := out.Rows[0]["Body (HTML)"]
	if !strings.HasPrefix(body, "<h3>Highlights</h3><ul>") {
		t.Fatalf("fallback body = %q", body)
	}
	if !strings.Contains(body, "<li>stain-resistant</li>") {
		t.Fatalf("fallback body missing feature bullet: %q", body)
	}
	if !strings.Contains(body, "<h3>Details</h3><p>Vegan leather top, rubber base</p>") {
		t.Fatalf("fallback body missing details: %q", body)
	}
	if !strings.Contains(body, "<h3>Shipping & Returns</h3><p>30-day returns. Tracked shipping.</p>") {
		t.Fatalf("fallback body missing shipping section: %q", body)
	}
	if out.Rows[0]["Title"] != "Minimal Desk Mat" {
		t.Fatalf("fallback title = %q", out.Rows[0]["Title"])
	}
	if out.Rows[0]["Tags"] != "desk-mat, minimalist" {
		t.Fatalf("fallback tags = %q", out.Rows[0]["Tags"])
	}
}

func TestEnrichProductsSuccess(t *testing.T) {
	gen := &fakeGen{jsonResp: `{
		"title_seo": "Minimal Desk Mat for Focused Work",
		"body_html": "<h3>Highlights</h3><ul><li>Non-slip</li></ul>",
		"tags": ["desk-mat", "minimalist", "office"]
	}`}
	out, fallbacks := EnrichProducts(seedTable(), gen, "")

	if fallbacks != 0 {
		t.Fatalf("fallbacks = %d, want 0", fallbacks)
	}
	if gen.jsonCalls != 2 {
		t.Fatalf("jsonCalls = %d, want one call per row", gen.jsonCalls)
	}
	r := out.Rows[0]
	if r["Title"] != "Minimal Desk Mat for Focused Work" {
		t.Fatalf("Title = %q", r["Title"])
	}
	if r["Tags"] != "desk-mat, minimalist, office" {
		t.Fatalf("Tags = %q", r["Tags"])
	}
	if r["Vendor"] != DefaultVendor {
		t.Fatalf("empty vendor should use the default, got %q", r["Vendor"])
	}
	if r["Variant SKU"] != "MAT-001" || r["Variant Price"] != "24.90" {
		t.Fatalf("variant fields = %q / %q", r["Variant SKU"], r["Variant Price"])
	}
	if r["Published"] != "TRUE" || r["Status"] != "active" {
		t.Fatalf("defaults = Published %q Status %q", r["Published"], r["Status"])
	}
	if out.Rows[1]["Variant Price"] != DefaultPrice {
		t.Fatalf("empty seed price should default, got %q", out.Rows[1]["Variant Price"])
	}
}

func TestEnrichProductsTagsNotAList(t *testing.T) {
	gen := &fakeGen{jsonResp: `{
		"title_seo": "Walnut Cable Tray",
		"body_html": "<p>ok</p>",
		"tags": "not-a-list"
	}`}
	out, _ := EnrichProducts(seedTable(), gen, "Aceru Studio")
	if out.Rows[1]["Tags"] != "cable-tray" {
		t.Fatalf("non-list tags should fall back to seed tags, got %q", out.Rows[1]["Tags"])
	}
}

func TestEnrichProductsTruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("Very Long Title ", 10)
	gen := &fakeGen{jsonResp: `{"title_seo": "` + long + `", "body_html": "<p>x</p>", "tags": []}`}
	out, _ := EnrichProducts(seedTable(), gen, "Aceru Studio")
	if len(out.Rows[0]["Title"]) != 70 {
		t.Fatalf("title length = %d, want 70", len(out.Rows[0]["Title"]))
	}
}
