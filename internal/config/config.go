package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shopforge/internal/pipeline"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

type Config struct {
	LLMProvider     string   `yaml:"llm_provider"`
	LLMModel        string   `yaml:"llm_model"`
	ModelCandidates []string `yaml:"model_candidates"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string   `yaml:"openai_api_key"`

	BudgetUSD      float64 `yaml:"budget_usd"`
	EstCostPerCall float64 `yaml:"est_cost_per_call_usd"`
	ThrottleMillis int     `yaml:"llm_throttle_ms"`

	Vendor    string `yaml:"vendor"`
	Currency  string `yaml:"currency"`
	StoreName string `yaml:"store_name"`

	InputsDir  string `yaml:"inputs_dir"`
	OutputsDir string `yaml:"outputs_dir"`
	ImagesDir  string `yaml:"images_dir"`
	DBPath     string `yaml:"db_path"`

	MaxSeedItems     int `yaml:"max_seed_items"`
	ImagesPerProduct int `yaml:"images_per_product"`

	SKUPrefix    string            `yaml:"sku_prefix"`
	ProductType  string            `yaml:"product_type"`
	VariantAxes  []pipeline.Axis   `yaml:"variant_axes"`
	PriceByValue map[string]string `yaml:"price_by_value"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	StripeSecretKey        string `yaml:"stripe_secret_key"`
	CheckoutListenAddr     string `yaml:"checkout_listen_addr"`
	CheckoutBaseURL        string `yaml:"checkout_base_url"`
	CatalogRefreshSchedule string `yaml:"catalog_refresh_schedule"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	Model string `yaml:"-"` // resolved once from the candidate chain
}

func LoadConfig() Config {
	var cfg Config

	// .env first, matching how the rest of the toolchain is configured.
	_ = godotenv.Load()

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideFloat(&cfg.BudgetUSD, "BUDGET_USD")
	envOverrideFloat(&cfg.EstCostPerCall, "EST_COST_PER_CALL_USD")
	envOverrideInt(&cfg.ThrottleMillis, "LLM_THROTTLE_MS")
	envOverride(&cfg.Vendor, "VENDOR")
	envOverride(&cfg.Currency, "CURRENCY")
	envOverride(&cfg.StoreName, "STORE_NAME")
	envOverride(&cfg.InputsDir, "INPUTS_DIR")
	envOverride(&cfg.OutputsDir, "OUTPUTS_DIR")
	envOverride(&cfg.ImagesDir, "IMAGES_DIR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.MaxSeedItems, "MAX_SEED_ITEMS")
	envOverrideInt(&cfg.ImagesPerProduct, "IMAGES_PER_PRODUCT")
	envOverride(&cfg.SKUPrefix, "SKU_PREFIX")
	envOverride(&cfg.ProductType, "PRODUCT_TYPE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.StripeSecretKey, "STRIPE_SECRET_KEY")
	envOverride(&cfg.CheckoutListenAddr, "CHECKOUT_LISTEN_ADDR")
	envOverride(&cfg.CheckoutBaseURL, "CHECKOUT_BASE_URL")
	envOverride(&cfg.CatalogRefreshSchedule, "CATALOG_REFRESH_SCHEDULE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.BudgetUSD == 0 {
		cfg.BudgetUSD = 10.0
	}
	if cfg.EstCostPerCall == 0 {
		cfg.EstCostPerCall = 0.015
	}
	if cfg.ThrottleMillis == 0 {
		cfg.ThrottleMillis = 600
	}
	if cfg.Vendor == "" {
		cfg.Vendor = pipeline.DefaultVendor
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.StoreName == "" {
		cfg.StoreName = cfg.Vendor
	}
	if cfg.InputsDir == "" {
		cfg.InputsDir = "inputs"
	}
	if cfg.OutputsDir == "" {
		cfg.OutputsDir = "outputs"
	}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = "images_in"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./shopforge.db"
	}
	if cfg.MaxSeedItems == 0 {
		cfg.MaxSeedItems = 10
	}
	if cfg.ImagesPerProduct == 0 {
		cfg.ImagesPerProduct = 3
	}
	if cfg.SKUPrefix == "" {
		cfg.SKUPrefix = "TEE"
	}
	if cfg.ProductType == "" {
		cfg.ProductType = "t-shirt"
	}
	if len(cfg.VariantAxes) == 0 {
		cfg.VariantAxes = []pipeline.Axis{
			{Name: "Color", Values: []string{"black", "white", "navy"}},
			{Name: "Size", Values: []string{"S", "M", "L", "XL", "2XL"}},
		}
	}
	if len(cfg.PriceByValue) == 0 {
		cfg.PriceByValue = map[string]string{
			"S": "24.90", "M": "24.90", "L": "24.90", "XL": "26.90", "2XL": "26.90",
		}
	}
	if cfg.CheckoutListenAddr == "" {
		cfg.CheckoutListenAddr = ":5000"
	}
	if cfg.CheckoutBaseURL == "" {
		cfg.CheckoutBaseURL = "http://localhost:5000"
	}

	// Validate
	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.BudgetUSD < 0 {
		log.Fatalf("invalid budget_usd '%f': must be >= 0", cfg.BudgetUSD)
	}
	if cfg.EstCostPerCall <= 0 {
		log.Fatalf("invalid est_cost_per_call_usd '%f': must be > 0", cfg.EstCostPerCall)
	}
	if cfg.ThrottleMillis < 0 {
		log.Fatalf("invalid llm_throttle_ms '%d': must be >= 0", cfg.ThrottleMillis)
	}
	if cfg.MaxSeedItems < 1 {
		log.Fatalf("invalid max_seed_items '%d': must be >= 1", cfg.MaxSeedItems)
	}
	if cfg.ImagesPerProduct < 1 {
		log.Fatalf("invalid images_per_product '%d': must be >= 1", cfg.ImagesPerProduct)
	}
	if len(cfg.VariantAxes) > 3 {
		log.Fatalf("invalid variant_axes: at most 3 axes supported, got %d", len(cfg.VariantAxes))
	}
	for _, ax := range cfg.VariantAxes {
		if strings.TrimSpace(ax.Name) == "" || len(ax.Values) == 0 {
			log.Fatalf("invalid variant axis '%s': name and at least one value required", ax.Name)
		}
	}

	cfg.Model = resolveModel(cfg)
	return cfg
}

// resolveModel walks the candidate chain once at startup: the explicit
// model first, then configured candidates, then the provider default. The
// first non-empty entry becomes the model for the whole run.
func resolveModel(cfg Config) string {
	candidates := append([]string{cfg.LLMModel}, cfg.ModelCandidates...)
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	if cfg.LLMProvider == "openai" {
		return defaultOpenAIModel
	}
	return defaultAnthropicModel
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
