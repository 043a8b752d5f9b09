package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"shopforge/internal/tabular"
)

type productCopy struct {
	TitleSEO string          `json:"title_seo"`
	BodyHTML string          `json:"body_html"`
	Tags     json.RawMessage `json:"tags"`
}

const copySystemPrompt = "You write high-converting, clear, skimmable product pages for DTC stores. Keep it honest and concise."

// EnrichProducts turns seed rows into the intermediate copy artifact, one
// LLM call per row. Any gateway failure degrades that row to the
// deterministic template fallback; a batch of N rows always yields N output
// rows. Returns the table and the number of rows that fell back.
func EnrichProducts(in *tabular.Table, gen Generator, vendor string) (*tabular.Table, int) {
	if vendor == "" {
		vendor = DefaultVendor
	}
	out := &tabular.Table{Columns: CopyColumns}
	fallbacks := 0

	for _, r := range in.Rows {
		title := tabular.Get(r, "title")
		features := tabular.Get(r, "features")
		materials := tabular.Get(r, "materials")
		useCases := tabular.Get(r, "use_cases")
		price := tabular.Get(r, "price")
		if price == "" {
			price = DefaultPrice
		}
		sku := tabular.Get(r, "sku")
		baseTags := tabular.Get(r, "tags")

		outTitle, bodyHTML, tagStr, err := generateCopy(gen, title, features, materials, useCases, baseTags)
		if err != nil {
			log.Printf("stage=enrich fallback title=%q err=%v", title, err)
			fallbacks++
			outTitle = truncate(title, maxTitleLen)
			bodyHTML = fallbackBody(features, materials)
			tagStr = baseTags
		}

		out.Rows = append(out.Rows, map[string]string{
			"Title":                       outTitle,
			"Body (HTML)":                 bodyHTML,
			"Vendor":                      vendor,
			"Type":                        "",
			"Tags":                        tagStr,
			"Published":                   "TRUE",
			"Option1 Name":                "Title",
			"Option1 Value":               "Default Title",
			"Variant SKU":                 sku,
			"Variant Price":               price,
			"Variant Inventory Qty":       "10",
			"Variant Inventory Policy":    "deny",
			"Variant Fulfillment Service": "manual",
			"Variant Requires Shipping":   "TRUE",
			"Variant Taxable":             "TRUE",
			"Image Src":                   "",
			"Variant Grams":               "",
			"Cost per item":               "",
			"Status":                      "active",
		})
	}
	return out, fallbacks
}

func generateCopy(gen Generator, title, features, materials, useCases, baseTags string) (string, string, string, error) {
	user := fmt.Sprintf(`Product: %s
Key features: %s
Materials/specs: %s
Use cases / benefits: %s

Return strict JSON with:
- "title_seo": optimized title <= 70 chars (no clickbait, include key attributes).
- "body_html": HTML with <h3>Highlights</h3><ul>...</ul>, <h3>Details</h3>, <h3>Shipping & Returns</h3>.
- "tags": list of 8-15 SEO tags/keywords (lowercase, hyphenated where useful).
`, title, features, materials, useCases)

	raw, err := gen.GenerateJSON(copySystemPrompt, user, 900, 0.6)
	if err != nil {
		return "", "", "", err
	}
	var data productCopy
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", "", "", fmt.Errorf("decoding copy response: %w", err)
	}

	outTitle := strings.TrimSpace(data.TitleSEO)
	if outTitle == "" {
		outTitle = title
	}
	return truncate(outTitle, maxTitleLen), data.BodyHTML, tagsField(data.Tags, baseTags), nil
}

// tagsField accepts the expected ["a","b"] shape and falls back to the
// row's own tags for anything else the model produces.
func tagsField(raw json.RawMessage, baseTags string) string {
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		var out []string
		for _, t := range asList {
			t = strings.TrimSpace(t)
			if t != "" {
				out = append(out, t)
			}
		}
		if len(out) > 0 {
			return strings.Join(out, ", ")
		}
	}
	return baseTags
}

// fallbackBody builds the deterministic copy used when the gateway fails:
// features become Highlights bullets, materials become Details.
func fallbackBody(features, materials string) string {
	var b strings.Builder
	b.WriteString("<h3>Highlights</h3><ul>")
	for _, f := range strings.Split(features, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fmt.Fprintf(&b, "<li>%s</li>", f)
		}
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<h3>Details</h3><p>%s</p>", materials)
	b.WriteString("<h3>Shipping & Returns</h3><p>30-day returns. Tracked shipping.</p>")
	return b.String()
}
