package landing

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"shopforge/internal/pipeline"
	"shopforge/internal/tabular"
)

var heroTmpl = template.Must(template.New("hero").Parse(`<section style="font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif; padding:48px 16px; max-width:1100px; margin:0 auto;">
  <div style="display:flex; flex-wrap:wrap; gap:24px; align-items:center;">
    <div style="flex:1; min-width:280px;">
      <h1 style="font-size:44px; line-height:1.1; margin:0 0 12px; font-weight:800;">{{.Hero}}</h1>
      <p style="font-size:18px; color:#444; margin:8px 0 16px;">{{.Promise}}</p>
      <ul style="list-style:none; padding:0; margin:0 0 16px; color:#222; font-size:16px;">
        {{range .Bullets}}<li>&bull; {{.}}</li>{{end}}
      </ul>
      <div style="display:flex; gap:12px; margin-top:10px;">
        <a href="/collections/all" style="background:#111; color:#fff; padding:12px 18px; border-radius:8px; text-decoration:none;">Shop Collection</a>
        <a href="#featured" style="border:1px solid #111; color:#111; padding:12px 18px; border-radius:8px; text-decoration:none;">See Bestsellers</a>
      </div>
      <p style="margin-top:12px; color:#666; font-size:14px;">{{.SocialProof}}</p>
    </div>
    <div style="flex:1; min-width:280px; background:#f6f6f6; border-radius:16px; height:320px; display:flex; align-items:center; justify-content:center; color:#666;">
      <span>Hero Image Placeholder (upload in theme)</span>
    </div>
  </div>
</section>
`))

var gridTmpl = template.Must(template.New("grid").Parse(`<section id="featured" style="font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif; padding:24px 16px; max-width:1100px; margin:0 auto;">
  <h2 style="font-size:28px; font-weight:800; margin:8px 0 20px;">Featured Picks</h2>
  <div style="display:grid; grid-template-columns:repeat(auto-fill,minmax(220px,1fr)); gap:16px;">
    {{range .}}<div>
      <a href="/products/{{.Handle}}" style="text-decoration:none; color:inherit;">
        <div style="border:1px solid #eee; border-radius:12px; padding:12px; background:#fff;">
          {{if .ImageSrc}}<img src="{{.ImageSrc}}" alt="{{.Title}}" style="width:100%; height:200px; object-fit:cover; border-radius:10px; background:#eee;">{{else}}<div style="width:100%; height:200px; background:#eee; border-radius:10px;"></div>{{end}}
          <div style="margin-top:10px;">
            <div style="font-weight:600; font-size:15px; line-height:1.3; color:#111;">{{.Title}}</div>
            <div style="color:#444; margin-top:6px;">${{.Price}}</div>
          </div>
        </div>
      </a>
    </div>{{end}}
  </div>
</section>
`))

type gridCard struct {
	Handle   string
	Title    string
	Price    string
	ImageSrc string
}

type heroData struct {
	Hero        string
	Promise     string
	Bullets     []string
	SocialProof string
}

// BuildHero renders the hero section from a kit's landing outline, with the
// original's fallbacks for missing outline fields.
func BuildHero(outline pipeline.LandingOutline) (string, error) {
	data := heroData{
		Hero:        outline.Hero,
		Promise:     outline.Promise,
		Bullets:     outline.Bullets,
		SocialProof: outline.SocialProof,
	}
	if data.Hero == "" {
		data.Hero = "Minimalist Tools for Maximum Focus"
	}
	if data.Promise == "" {
		data.Promise = "Refine your workspace. Focus on what matters."
	}
	if len(data.Bullets) == 0 {
		data.Bullets = []string{"Clutter-free", "Durable materials", "Ships fast"}
	}
	if len(data.Bullets) > 3 {
		data.Bullets = data.Bullets[:3]
	}
	if data.SocialProof == "" {
		data.SocialProof = "Trusted by remote pros in 20+ countries"
	}

	var buf bytes.Buffer
	if err := heroTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render hero: %w", err)
	}
	return buf.String(), nil
}

// BuildGrid renders the featured-products grid from the product copy
// artifact, capped at limit cards.
func BuildGrid(products *tabular.Table, limit int) (string, error) {
	if limit < 1 {
		limit = 8
	}
	var cards []gridCard
	for _, r := range products.Rows {
		if len(cards) == limit {
			break
		}
		title := tabular.Get(r, "Title")
		price := tabular.Get(r, "Variant Price")
		if price == "" {
			price = pipeline.DefaultPrice
		}
		cards = append(cards, gridCard{
			Handle:   pipeline.Slugify(title),
			Title:    title,
			Price:    price,
			ImageSrc: tabular.Get(r, "Image Src"),
		})
	}

	var buf bytes.Buffer
	if err := gridTmpl.Execute(&buf, cards); err != nil {
		return "", fmt.Errorf("render grid: %w", err)
	}
	return buf.String(), nil
}

// WriteSections builds both landing artifacts from the kit and product
// files.
func WriteSections(kitOutline pipeline.LandingOutline, products *tabular.Table, heroPath, gridPath string) error {
	hero, err := BuildHero(kitOutline)
	if err != nil {
		return err
	}
	grid, err := BuildGrid(products, 8)
	if err != nil {
		return err
	}
	for path, content := range map[string]string{heroPath: hero, gridPath: grid} {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
