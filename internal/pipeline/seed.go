package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"shopforge/internal/tabular"
)

type seedRow struct {
	Title     string `json:"title"`
	Features  string `json:"features"`
	Materials string `json:"materials"`
	UseCases  string `json:"use_cases"`
	Price     string `json:"price"`
	Tags      string `json:"tags"`
	SKU       string `json:"sku"`
}

type seedResponse struct {
	Rows []seedRow `json:"rows"`
}

const seedSystemPrompt = "You expand product ideas into Shopify-ready row primitives for later copywriting."

// SeedFromKit expands a niche kit's product ideas into seed rows with one
// LLM call. No rows exist yet to fall back onto, so failure here is fatal
// for the stage.
func SeedFromKit(kitPath string, gen Generator, maxItems int) (*tabular.Table, error) {
	kit, err := LoadKit(kitPath)
	if err != nil {
		return nil, err
	}
	ideas := kit.ProductIdeas
	if maxItems > 0 && len(ideas) > maxItems {
		ideas = ideas[:maxItems]
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("no product_ideas found in kit %s", kitPath)
	}

	ideasJSON, err := json.Marshal(ideas)
	if err != nil {
		return nil, fmt.Errorf("encoding ideas: %w", err)
	}
	user := fmt.Sprintf(`Product ideas (array of strings):
%s

Return strict JSON with key "rows": an array of objects.
Each object must include:
- "title": short, concrete product name with key attributes (<= 70 chars)
- "features": 4-6 comma-separated bullets (concise)
- "materials": 1-2 lines of materials/specs
- "use_cases": 2-3 concise use cases/benefits, comma-separated
- "price": numeric string like "19.99"
- "tags": 5-10 lowercase tags, comma-separated (e.g., "desk-mat, minimalist, office")
- "sku": short code (e.g., prefix + unique bits)
Do not add extra keys. No markdown, no commentary.
`, ideasJSON)

	raw, err := gen.GenerateJSON(seedSystemPrompt, user, 1100, 0.55)
	if err != nil {
		return nil, fmt.Errorf("seed expansion failed: %w", err)
	}
	var resp seedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding seed response: %w", err)
	}

	out := &tabular.Table{Columns: SeedColumns}
	for _, r := range resp.Rows {
		sku := strings.TrimSpace(r.SKU)
		if sku == "" {
			sku = generatedSKU()
		}
		price := strings.TrimSpace(r.Price)
		if price == "" {
			price = DefaultPrice
		}
		out.Rows = append(out.Rows, map[string]string{
			"title":     truncate(strings.TrimSpace(r.Title), maxTitleLen),
			"features":  strings.TrimSpace(r.Features),
			"materials": strings.TrimSpace(r.Materials),
			"use_cases": strings.TrimSpace(r.UseCases),
			"price":     price,
			"tags":      strings.TrimSpace(r.Tags),
			"sku":       sku,
		})
	}
	return out, nil
}

// Kit is the niche kit artifact produced by the kit command.
type Kit struct {
	BrandNames     []string       `json:"brand_names"`
	Angles         []string       `json:"angles"`
	ProductIdeas   []string       `json:"product_ideas"`
	SEOKeywords    []string       `json:"seo_keywords"`
	LandingOutline LandingOutline `json:"landing_outline"`
}

type LandingOutline struct {
	Hero        string          `json:"hero"`
	Promise     string          `json:"promise"`
	Bullets     []string        `json:"3_bullets"`
	SocialProof string          `json:"social_proof"`
	FAQ         json.RawMessage `json:"faq"`
}

// LoadKit reads a niche kit artifact; a missing file reports as a missing
// input artifact so the caller can point at the kit command.
func LoadKit(path string) (*Kit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &tabular.MissingArtifactError{Path: path, Hint: "run the kit command first"}
		}
		return nil, fmt.Errorf("read kit: %w", err)
	}
	var kit Kit
	if err := json.Unmarshal(data, &kit); err != nil {
		return nil, fmt.Errorf("parse kit json: %w", err)
	}
	return &kit, nil
}

func generatedSKU() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "SKU-000000"
	}
	return "SKU-" + strings.ToUpper(hex.EncodeToString(buf))
}
