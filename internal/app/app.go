package app

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"shopforge/internal/checkout"
	"shopforge/internal/config"
	"shopforge/internal/httpx"
	"shopforge/internal/landing"
	"shopforge/internal/llm"
	"shopforge/internal/notify"
	"shopforge/internal/pipeline"
	"shopforge/internal/storage/sqlite"
	"shopforge/internal/tabular"
)

const usage = `usage: shopforge <command> [flags]

commands:
  kit        generate the niche kit (brand names, angles, product ideas)
  ads        generate ad hooks, captions and scripts for an offer
  seed       expand kit product ideas into seed rows
  copy       write product copy for seed rows (template fallback per row)
  normalize  map any product CSV onto the import schema
  variants   expand products into option-axis variant rows
  images     assign, rename and describe raw product images
  urlmap     write the new_filename,url template for uploaded images
  merge      combine product and image CSVs into one import file
  optimize   rewrite titles/meta and propose price tests per product
  landing    render the landing hero and featured-grid sections
  checkout   serve the checkout site backed by the product catalog
`

// Main dispatches one pipeline stage per invocation. Stages that talk to
// the model share one run budget; the budget line is logged whether the
// stage succeeds or dies.
func Main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. Provider=%s Model=%s Budget=$%.2f EstPerCall=$%.3f Throttle=%dms Vendor=%s ExternalHTTPTimeout=%s",
		cfg.LLMProvider, cfg.Model, cfg.BudgetUSD, cfg.EstCostPerCall, cfg.ThrottleMillis, cfg.Vendor, appliedHTTPTimeout)

	budget := llm.NewBudget(cfg.BudgetUSD, cfg.EstCostPerCall)
	notifier := notify.New(cfg.SlackBotToken, cfg.SlackChannelID)

	run := &runner{cfg: cfg, budget: budget, notifier: notifier}

	var err error
	switch command {
	case "kit":
		err = run.kit(args)
	case "ads":
		err = run.ads(args)
	case "seed":
		err = run.seed(args)
	case "copy":
		err = run.copyStage(args)
	case "normalize":
		err = run.normalize(args)
	case "variants":
		err = run.variants(args)
	case "images":
		err = run.images(args)
	case "urlmap":
		err = run.urlmap(args)
	case "merge":
		err = run.merge(args)
	case "optimize":
		err = run.optimize(args)
	case "landing":
		err = run.landing(args)
	case "checkout":
		err = run.checkout(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	log.Printf("Run %s", budget.Summary())
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

type runner struct {
	cfg      config.Config
	budget   *llm.Budget
	notifier *notify.Notifier
}

// gateway builds the provider client on demand so non-LLM stages never
// require an API key.
func (r *runner) gateway() (*llm.Client, error) {
	return llm.NewClient(llm.Options{
		Provider:        r.cfg.LLMProvider,
		Model:           r.cfg.Model,
		AnthropicAPIKey: r.cfg.AnthropicAPIKey,
		OpenAIAPIKey:    r.cfg.OpenAIAPIKey,
		Budget:          r.budget,
		Throttle:        time.Duration(r.cfg.ThrottleMillis) * time.Millisecond,
	})
}

func (r *runner) outPath(name string) string {
	return filepath.Join(r.cfg.OutputsDir, name)
}

func (r *runner) done(stage string, records int, artifact string) {
	log.Printf("stage=%s records=%d artifact=%s", stage, records, artifact)
	r.notifier.StageComplete(stage, records, artifact, r.budget.Summary())
}

func (r *runner) kit(args []string) error {
	fs := flag.NewFlagSet("kit", flag.ExitOnError)
	niche := fs.String("niche", "minimalist desk accessories", "product niche")
	audience := fs.String("audience", "remote workers who value focus", "target audience")
	out := fs.String("out", r.outPath("niche_kit.json"), "kit output path")
	fs.Parse(args)

	gen, err := r.gateway()
	if err != nil {
		return err
	}
	if err := pipeline.GenerateNicheKit(gen, *niche, *audience, *out); err != nil {
		return err
	}
	r.done("kit", 1, *out)
	return nil
}

func (r *runner) ads(args []string) error {
	fs := flag.NewFlagSet("ads", flag.ExitOnError)
	niche := fs.String("niche", "minimalist desk accessories", "product niche")
	offer := fs.String("offer", "premium desk mat bundle with free shipping", "offer to promote")
	out := fs.String("out", r.outPath("ad_creatives.json"), "creatives output path")
	fs.Parse(args)

	gen, err := r.gateway()
	if err != nil {
		return err
	}
	if err := pipeline.GenerateAdCreatives(gen, *niche, *offer, *out); err != nil {
		return err
	}
	r.done("ads", 1, *out)
	return nil
}

func (r *runner) seed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	kitPath := fs.String("kit", r.outPath("niche_kit.json"), "niche kit path")
	out := fs.String("out", r.outPath("products_seed.csv"), "seed CSV output path")
	maxItems := fs.Int("max", r.cfg.MaxSeedItems, "max product ideas to expand")
	fs.Parse(args)

	gen, err := r.gateway()
	if err != nil {
		return err
	}
	table, err := pipeline.SeedFromKit(*kitPath, gen, *maxItems)
	if err != nil {
		return err
	}
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	r.done("seed", len(table.Rows), *out)
	return nil
}

func (r *runner) copyStage(args []string) error {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	in := fs.String("in", r.outPath("products_seed.csv"), "seed CSV path")
	out := fs.String("out", r.outPath("products_with_copy.csv"), "copy CSV output path")
	fs.Parse(args)

	gen, err := r.gateway()
	if err != nil {
		return err
	}
	seed, err := tabular.ReadFile(*in, "run the seed command first")
	if err != nil {
		return err
	}
	table, fallbacks := pipeline.EnrichProducts(seed, gen, r.cfg.Vendor)
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	if fallbacks > 0 {
		log.Printf("stage=copy fallback_rows=%d of %d", fallbacks, len(table.Rows))
	}
	r.done("copy", len(table.Rows), *out)
	return nil
}

func (r *runner) normalize(args []string) error {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	in := fs.String("in", r.outPath("products_with_copy.csv"), "source product CSV")
	out := fs.String("out", r.outPath("products_import.csv"), "import CSV output path")
	fs.Parse(args)

	src, err := tabular.ReadFile(*in, "run the copy command first")
	if err != nil {
		return err
	}
	table, err := pipeline.Normalize(src)
	if err != nil {
		return err
	}
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	r.done("normalize", len(table.Rows), *out)
	return nil
}

func (r *runner) variants(args []string) error {
	fs := flag.NewFlagSet("variants", flag.ExitOnError)
	in := fs.String("in", r.outPath("products_with_copy.csv"), "source product CSV")
	out := fs.String("out", r.outPath("products_variants.csv"), "variant CSV output path")
	prefix := fs.String("sku-prefix", r.cfg.SKUPrefix, "SKU prefix")
	fs.Parse(args)

	src, err := tabular.ReadFile(*in, "run the copy command first")
	if err != nil {
		return err
	}
	table, err := pipeline.ExpandTable(src, pipeline.VariantOptions{
		Axes:         r.cfg.VariantAxes,
		PriceByValue: r.cfg.PriceByValue,
		SKUPrefix:    *prefix,
		ProductType:  r.cfg.ProductType,
	})
	if err != nil {
		return err
	}
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	r.done("variants", len(table.Rows), *out)
	return nil
}

func (r *runner) images(args []string) error {
	fs := flag.NewFlagSet("images", flag.ExitOnError)
	products := fs.String("products", r.outPath("products_with_copy.csv"), "product CSV path")
	imagesDir := fs.String("images", r.cfg.ImagesDir, "raw images directory")
	outDir := fs.String("out-dir", "images_out", "renamed images directory")
	mapping := fs.String("map", r.outPath("image_mapping.csv"), "mapping CSV output path")
	importOut := fs.String("import", r.outPath("images_import.csv"), "image import CSV output path")
	llmAlt := fs.Bool("llm-alt", false, "generate alt text with the model instead of the heuristic")
	fs.Parse(args)

	table, err := tabular.ReadFile(*products, "run the copy command first")
	if err != nil {
		return err
	}

	var gen pipeline.Generator
	if *llmAlt {
		client, err := r.gateway()
		if err != nil {
			return err
		}
		gen = client
	}

	records, err := pipeline.PrepareImages(table, pipeline.ImageOptions{
		ImagesDir:  *imagesDir,
		OutputDir:  *outDir,
		PerProduct: r.cfg.ImagesPerProduct,
		Gen:        gen,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Printf("stage=images no images found in %s", *imagesDir)
		return nil
	}
	if err := pipeline.MappingTable(records).WriteFile(*mapping); err != nil {
		return err
	}
	if err := pipeline.ImageTable(records).WriteFile(*importOut); err != nil {
		return err
	}
	r.done("images", len(records), *importOut)
	return nil
}

func (r *runner) urlmap(args []string) error {
	fs := flag.NewFlagSet("urlmap", flag.ExitOnError)
	imagesDir := fs.String("images", "images_out", "renamed images directory")
	out := fs.String("out", r.outPath("file_urls.csv"), "URL template output path")
	fs.Parse(args)

	n, err := pipeline.WriteURLMapTemplate(*imagesDir, *out)
	if err != nil {
		return err
	}
	r.done("urlmap", n, *out)
	return nil
}

func (r *runner) merge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	products := fs.String("products", r.outPath("products_import.csv"), "product import CSV")
	images := fs.String("images", r.outPath("images_import.csv"), "image import CSV")
	urls := fs.String("urls", r.outPath("file_urls.csv"), "optional filename->url CSV")
	out := fs.String("out", r.outPath("products_merged.csv"), "merged CSV output path")
	fs.Parse(args)

	prodTable, err := tabular.ReadFile(*products, "run the normalize command first")
	if err != nil {
		return err
	}
	imgTable, err := tabular.ReadFile(*images, "run the images command first")
	if err != nil {
		return err
	}

	urlMap, err := pipeline.ReadURLMap(*urls)
	if err != nil {
		return fmt.Errorf("url map %s: %w", *urls, err)
	}

	table, err := pipeline.Merge(prodTable, imgTable, urlMap)
	if err != nil {
		return err
	}
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	r.done("merge", len(table.Rows), *out)
	return nil
}

func (r *runner) optimize(args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	in := fs.String("in", r.outPath("products_with_copy.csv"), "product CSV path")
	out := fs.String("out", r.outPath("products_optimized.csv"), "optimized CSV output path")
	fs.Parse(args)

	gen, err := r.gateway()
	if err != nil {
		return err
	}
	src, err := tabular.ReadFile(*in, "run the copy command first")
	if err != nil {
		return err
	}
	table, experiments, fallbacks, err := pipeline.Optimize(src, gen)
	if err != nil {
		return err
	}
	if err := table.WriteFile(*out); err != nil {
		return err
	}
	if fallbacks > 0 {
		log.Printf("stage=optimize fallback_rows=%d of %d", fallbacks, len(table.Rows))
	}

	db, err := sqlite.InitDB(r.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init experiment log: %w", err)
	}
	defer db.Close()
	inserted, err := sqlite.InsertExperiments(db, experiments)
	if err != nil {
		return fmt.Errorf("record experiments: %w", err)
	}
	log.Printf("stage=optimize experiments_recorded=%d db=%s", inserted, r.cfg.DBPath)

	r.done("optimize", len(table.Rows), *out)
	return nil
}

func (r *runner) landing(args []string) error {
	fs := flag.NewFlagSet("landing", flag.ExitOnError)
	kitPath := fs.String("kit", r.outPath("niche_kit.json"), "niche kit path")
	products := fs.String("products", r.outPath("products_with_copy.csv"), "product CSV path")
	hero := fs.String("hero", r.outPath("landing_hero.html"), "hero section output path")
	grid := fs.String("grid", r.outPath("landing_grid.html"), "grid section output path")
	fs.Parse(args)

	kit, err := pipeline.LoadKit(*kitPath)
	if err != nil {
		return err
	}
	table, err := tabular.ReadFile(*products, "run the copy command first")
	if err != nil {
		return err
	}
	if err := landing.WriteSections(kit.LandingOutline, table, *hero, *grid); err != nil {
		return err
	}
	r.done("landing", len(table.Rows), *hero)
	return nil
}

func (r *runner) checkout(args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	catalog := fs.String("catalog", r.outPath("products_with_copy.csv"), "catalog CSV path")
	addr := fs.String("addr", r.cfg.CheckoutListenAddr, "listen address")
	fs.Parse(args)

	srv, err := checkout.NewServer(checkout.Options{
		SecretKey:       r.cfg.StripeSecretKey,
		Currency:        r.cfg.Currency,
		StoreName:       r.cfg.StoreName,
		BaseURL:         r.cfg.CheckoutBaseURL,
		CatalogPath:     *catalog,
		RefreshSchedule: r.cfg.CatalogRefreshSchedule,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(*addr)
}
