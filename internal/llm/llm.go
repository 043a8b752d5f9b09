package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"shopforge/internal/httpx"
)

// Client is the single-call gateway to a chat-completion provider. It
// performs exactly one attempt per call: no retries, no backoff. Retry
// policy belongs to the caller, which decides whether a failure is fatal or
// degrades to a deterministic fallback.
//
// Every call reserves its estimated cost against the run budget first, then
// waits the fixed throttle interval before touching the network.
type Client struct {
	provider  string
	model     string
	openAIKey string
	anthropic anthropic.Client
	budget    *Budget
	throttle  time.Duration
}

type Options struct {
	Provider        string // "anthropic" or "openai"
	Model           string // resolved once at startup from the candidate chain
	AnthropicAPIKey string
	OpenAIAPIKey    string
	Budget          *Budget
	Throttle        time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if opts.Budget == nil {
		return nil, fmt.Errorf("%w: no budget configured", ErrProviderUnavailable)
	}
	c := &Client{
		provider: opts.Provider,
		model:    opts.Model,
		budget:   opts.Budget,
		throttle: opts.Throttle,
	}
	switch opts.Provider {
	case "anthropic":
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: anthropic_api_key not set", ErrProviderUnavailable)
		}
		c.anthropic = anthropic.NewClient(option.WithAPIKey(opts.AnthropicAPIKey))
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai_api_key not set", ErrProviderUnavailable)
		}
		c.openAIKey = opts.OpenAIAPIKey
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, opts.Provider)
	}
	if c.model == "" {
		return nil, fmt.Errorf("%w: no model resolved", ErrProviderUnavailable)
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

// GenerateJSON issues one call and returns the structured payload. The
// response must be a JSON object; non-JSON output goes through the salvage
// parse and fails with ErrMalformedResponse if that also fails.
func (c *Client) GenerateJSON(system, user string, maxTokens int64, temperature float64) (json.RawMessage, error) {
	raw, err := c.generate(system, user, maxTokens, temperature, true)
	if err != nil {
		return nil, err
	}
	return ParseStructured(raw)
}

// GenerateText issues one call and returns the trimmed text response.
func (c *Client) GenerateText(system, user string, maxTokens int64, temperature float64) (string, error) {
	raw, err := c.generate(system, user, maxTokens, temperature, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *Client) generate(system, user string, maxTokens int64, temperature float64, jsonMode bool) (string, error) {
	if strings.TrimSpace(system) == "" || strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("llm call requires non-empty system and user content")
	}
	if err := c.budget.Reserve(1); err != nil {
		return "", err
	}
	// Fixed inter-call pause, applied regardless of budget state.
	time.Sleep(c.throttle)

	switch c.provider {
	case "openai":
		return c.callOpenAI(system, user, maxTokens, temperature, jsonMode)
	default:
		return c.callAnthropic(system, user, maxTokens, temperature)
	}
}

// --- Anthropic ---

func (c *Client) callAnthropic(system, user string, maxTokens int64, temperature float64) (string, error) {
	message, err := c.anthropic.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response model=%s size=%d tokens_in=%d tokens_out=%d",
				c.model, len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int64                 `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) callOpenAI(system, user string, maxTokens int64, temperature float64, jsonMode bool) (string, error) {
	reqBody := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if jsonMode {
		reqBody.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.openAIKey)

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	content := openAIResp.Choices[0].Message.Content
	log.Printf("llm openai response model=%s size=%d", c.model, len(content))
	return content, nil
}

// ParseStructured is the two-step structured parse: strict JSON first, then
// a bounded salvage that re-parses the span between the first '{' and the
// last '}'. Models wrap objects in fences or prose often enough that the
// salvage path is first-class, not an afterthought.
func ParseStructured(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		span := text[start : end+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	truncated := text
	if len(truncated) > 512 {
		truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(text))
	}
	return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncated)
}
