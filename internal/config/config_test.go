package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MODEL", "BUDGET_USD", "EST_COST_PER_CALL_USD",
		"LLM_THROTTLE_MS", "VENDOR", "CURRENCY", "STORE_NAME", "INPUTS_DIR",
		"OUTPUTS_DIR", "IMAGES_DIR", "DB_PATH", "MAX_SEED_ITEMS",
		"IMAGES_PER_PRODUCT", "SKU_PREFIX", "PRODUCT_TYPE",
		"CHECKOUT_LISTEN_ADDR", "CHECKOUT_BASE_URL", "CATALOG_REFRESH_SCHEDULE",
		"EXTERNAL_HTTP_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, yaml string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := LoadConfig()
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("provider = %q", cfg.LLMProvider)
	}
	if cfg.BudgetUSD != 10.0 || cfg.EstCostPerCall != 0.015 {
		t.Fatalf("budget = %f / %f", cfg.BudgetUSD, cfg.EstCostPerCall)
	}
	if cfg.ThrottleMillis != 600 {
		t.Fatalf("throttle = %d", cfg.ThrottleMillis)
	}
	if cfg.OutputsDir != "outputs" || cfg.ImagesDir != "images_in" {
		t.Fatalf("dirs = %q / %q", cfg.OutputsDir, cfg.ImagesDir)
	}
	if cfg.SKUPrefix != "TEE" || cfg.ProductType != "t-shirt" {
		t.Fatalf("variants = %q / %q", cfg.SKUPrefix, cfg.ProductType)
	}
	if len(cfg.VariantAxes) != 2 || cfg.VariantAxes[0].Name != "Color" {
		t.Fatalf("axes = %+v", cfg.VariantAxes)
	}
	if cfg.PriceByValue["XL"] != "26.90" {
		t.Fatalf("price overrides = %v", cfg.PriceByValue)
	}
	if cfg.Model != defaultAnthropicModel {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.StoreName != cfg.Vendor {
		t.Fatalf("store name should default to vendor, got %q", cfg.StoreName)
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	writeConfig(t, `
llm_provider: openai
budget_usd: 2.5
vendor: Oak & Iron
sku_prefix: MAT
variant_axes:
  - name: Size
    values: ["S", "L"]
`)
	t.Setenv("BUDGET_USD", "5.0")
	t.Setenv("SKU_PREFIX", "TRAY")

	cfg := LoadConfig()
	if cfg.LLMProvider != "openai" {
		t.Fatalf("provider = %q", cfg.LLMProvider)
	}
	if cfg.BudgetUSD != 5.0 {
		t.Fatalf("env must override yaml, budget = %f", cfg.BudgetUSD)
	}
	if cfg.SKUPrefix != "TRAY" {
		t.Fatalf("sku prefix = %q", cfg.SKUPrefix)
	}
	if cfg.Vendor != "Oak & Iron" {
		t.Fatalf("vendor = %q", cfg.Vendor)
	}
	if len(cfg.VariantAxes) != 1 || cfg.VariantAxes[0].Values[1] != "L" {
		t.Fatalf("axes = %+v", cfg.VariantAxes)
	}
	if cfg.Model != defaultOpenAIModel {
		t.Fatalf("openai default model = %q", cfg.Model)
	}
}

func TestResolveModelChain(t *testing.T) {
	cfg := Config{LLMProvider: "anthropic", ModelCandidates: []string{"", "  ", "claude-haiku-4-5"}}
	if got := resolveModel(cfg); got != "claude-haiku-4-5" {
		t.Fatalf("resolveModel = %q", got)
	}

	cfg.LLMModel = "claude-sonnet-4-5-20250929"
	if got := resolveModel(cfg); got != "claude-sonnet-4-5-20250929" {
		t.Fatalf("explicit model must win, got %q", got)
	}

	if got := resolveModel(Config{LLMProvider: "anthropic"}); got != defaultAnthropicModel {
		t.Fatalf("empty chain = %q", got)
	}
}
