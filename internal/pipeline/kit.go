package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const nicheSystemPrompt = "You are a lean e-commerce strategist creating profitable micro-brands with minimal budget."
const adsSystemPrompt = "You craft high-CTR short-form hooks and simple scripts that sell without hype."

// GenerateNicheKit produces the niche kit artifact: brand names, angles,
// product ideas, SEO keywords and a landing outline, in one JSON call.
func GenerateNicheKit(gen Generator, niche, audience, outPath string) error {
	user := fmt.Sprintf(`Return strict JSON with keys:
- "brand_names": array of 10 short brand name ideas for "%s".
- "angles": array of 8 value props targeted at "%s" (concise, punchy).
- "product_ideas": array of 12 specific product concepts (with a 1-line hook each).
- "seo_keywords": array of ~30 long-tail keywords for product pages/blog.
- "landing_outline": object with keys "hero", "promise", "3_bullets", "social_proof", "faq".
Keep it clean, dupe-free, and execution-ready.
`, niche, audience)

	raw, err := gen.GenerateJSON(nicheSystemPrompt, user, 900, 0.6)
	if err != nil {
		return fmt.Errorf("niche kit generation failed: %w", err)
	}
	return writeIndentedJSON(outPath, raw)
}

// GenerateAdCreatives produces hooks, captions and short video scripts for
// an offer, in one JSON call.
func GenerateAdCreatives(gen Generator, niche, offer, outPath string) error {
	user := fmt.Sprintf(`Offer: %s
Niche: %s
Return strict JSON with:
- "hooks": array of 20 punchy 5-8 word hooks (no clickbait buzzwords).
- "captions": array of 15 social captions (<=90 chars, with 1 CTA).
- "scripts": array of 8 short video scripts, each ~70-90 words, with [Hook]->[Value]->[CTA].
`, offer, niche)

	raw, err := gen.GenerateJSON(adsSystemPrompt, user, 1100, 0.7)
	if err != nil {
		return fmt.Errorf("ad creative generation failed: %w", err)
	}
	return writeIndentedJSON(outPath, raw)
}

func writeIndentedJSON(path string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting json: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
