package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"shopforge/internal/tabular"
)

// Experiment is one optimizer decision, persisted to the experiment log so
// price tests can be compared across runs.
type Experiment struct {
	Handle   string
	OldTitle string
	NewTitle string
	OldPrice string
	Base     string
	Plus10   string
	Minus10  string
	Notes    string
}

type optimizerResult struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Meta    string   `json:"meta"`
	AltText string   `json:"alt_text"`
	Prices  struct {
		Base    float64 `json:"base"`
		Plus10  float64 `json:"plus10"`
		Minus10 float64 `json:"minus10"`
	} `json:"prices"`
	Notes string `json:"notes"`
}

const optimizerSystemPrompt = `You are an elite ecommerce optimizer. Your job: maximize CTR and conversion.
Rules:
- Titles <= 70 chars, start with the core benefit.
- 3 bullets, tight benefits (<= 90 chars each).
- Meta description 140-155 chars, include primary keyword.
- Generate 3 alternative price points: base (same), +10%, -10%.
- Alt text: 8-12 words, include material/usage if known.
Output strict JSON:
{
 "title": "...",
 "bullets": ["...","...","..."],
 "meta": "...",
 "alt_text": "...",
 "prices": {"base": 0.00, "plus10": 0.00, "minus10": 0.00},
 "notes": "why these changes will convert"
}`

var optimizerColumns = []string{
	"Handle", "Optimized Title", "Bullets", "SEO Meta", "Image Alt Text",
	"Price Base", "Price +10%", "Price -10%",
}

// Optimize runs one budget-guarded LLM call per product row, producing an
// optimized title, bullets, meta description, alt text and three price
// points. A failed call degrades that row to its original copy with
// arithmetic price points; the batch never aborts. Returns the output
// table, the experiment records, and the fallback count.
func Optimize(in *tabular.Table, gen Generator) (*tabular.Table, []Experiment, int, error) {
	if err := in.RequireColumns("product copy CSV", "Title", "Body (HTML)", "Variant Price"); err != nil {
		return nil, nil, 0, err
	}

	out := &tabular.Table{Columns: append([]string(nil), in.Columns...)}
	out.AddColumns(optimizerColumns...)

	var experiments []Experiment
	fallbacks := 0
	for _, r := range in.Rows {
		title := tabular.Get(r, "Title")
		body := tabular.Get(r, "Body (HTML)")
		price := parsePrice(tabular.Get(r, "Variant Price"))

		// Naive keyword guess: leading words of the title.
		words := strings.Fields(title)
		if len(words) > 3 {
			words = words[:3]
		}
		keyword := strings.Join(words, " ")

		user := fmt.Sprintf("PRODUCT:\nTitle: %s\nPrice: %.2f\nContext: %s\nPrimary keyword: %s",
			title, price, truncate(body, 500), keyword)

		var res optimizerResult
		raw, err := gen.GenerateJSON(optimizerSystemPrompt, user, 800, 0.3)
		if err == nil {
			err = json.Unmarshal(raw, &res)
		}
		if err != nil {
			log.Printf("stage=optimize fallback title=%q err=%v", title, err)
			fallbacks++
			res = optimizerResult{Title: title}
		}

		newTitle := truncate(strings.TrimSpace(res.Title), maxTitleLen)
		if newTitle == "" {
			newTitle = truncate(title, maxTitleLen)
		}
		base := res.Prices.Base
		if base <= 0 {
			base = price
		}
		plus10 := res.Prices.Plus10
		if plus10 <= 0 {
			plus10 = round2(price * 1.10)
		}
		minus10 := res.Prices.Minus10
		if minus10 <= 0 {
			minus10 = round2(price * 0.90)
		}

		row := make(map[string]string, len(out.Columns))
		for _, col := range in.Columns {
			row[col] = r[col]
		}
		handle := tabular.Get(r, "Handle")
		if handle == "" {
			handle = Slugify(title)
		}
		row["Handle"] = handle
		row["Optimized Title"] = newTitle
		row["Bullets"] = strings.Join(res.Bullets, " | ")
		row["SEO Meta"] = res.Meta
		row["Image Alt Text"] = res.AltText
		row["Price Base"] = fmt.Sprintf("%.2f", base)
		row["Price +10%"] = fmt.Sprintf("%.2f", plus10)
		row["Price -10%"] = fmt.Sprintf("%.2f", minus10)
		out.Rows = append(out.Rows, row)

		experiments = append(experiments, Experiment{
			Handle:   handle,
			OldTitle: title,
			NewTitle: newTitle,
			OldPrice: fmt.Sprintf("%.2f", price),
			Base:     fmt.Sprintf("%.2f", base),
			Plus10:   fmt.Sprintf("%.2f", plus10),
			Minus10:  fmt.Sprintf("%.2f", minus10),
			Notes:    res.Notes,
		})
	}
	return out, experiments, fallbacks, nil
}

func parsePrice(s string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || p <= 0 {
		return 19.99
	}
	return p
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
