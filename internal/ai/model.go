package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/khrees2412/applytrack/internal/apperr"
)

// Supported providers
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderLMStudio  = "lmstudio"
)

// Model is the language-model collaborator
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelConfig selects a provider and its credentials. Empty endpoints use the
// provider's public default.
type ModelConfig struct {
	Provider     string
	Model        string
	GeminiKey    string
	OpenAIKey    string
	AnthropicKey string
	OllamaURL    string
	LMStudioURL  string

	GeminiEndpoint    string
	OpenAIEndpoint    string
	AnthropicEndpoint string
}

// NewModel builds the configured provider. Missing credentials are reported
// by Generate, so the failure shows up on the request that needs them.
func NewModel(cfg ModelConfig, client *http.Client) (Model, error) {
	if client == nil {
		client = http.DefaultClient
	}
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderGemini
	}

	switch provider {
	case ProviderGemini:
		return &gemini{
			client:   client,
			apiKey:   cfg.GeminiKey,
			model:    orDefault(cfg.Model, "gemini-2.5-pro"),
			endpoint: orDefault(cfg.GeminiEndpoint, "https://generativelanguage.googleapis.com"),
		}, nil
	case ProviderOpenAI:
		return &chatCompletions{
			client:   client,
			name:     "OpenAI",
			apiKey:   cfg.OpenAIKey,
			keyHint:  "openai_key",
			model:    orDefault(cfg.Model, "gpt-4"),
			endpoint: orDefault(cfg.OpenAIEndpoint, "https://api.openai.com"),
		}, nil
	case ProviderLMStudio:
		return &chatCompletions{
			client:   client,
			name:     "LMStudio",
			model:    orDefault(cfg.Model, "local-model"),
			endpoint: orDefault(cfg.LMStudioURL, "http://localhost:1234"),
		}, nil
	case ProviderAnthropic:
		return &anthropic{
			client:   client,
			apiKey:   cfg.AnthropicKey,
			model:    orDefault(cfg.Model, "claude-3-5-sonnet-20241022"),
			endpoint: orDefault(cfg.AnthropicEndpoint, "https://api.anthropic.com"),
		}, nil
	case ProviderOllama:
		return &ollama{
			client:   client,
			model:    orDefault(cfg.Model, "llama3.2"),
			endpoint: orDefault(cfg.OllamaURL, "http://localhost:11434"),
		}, nil
	default:
		return nil, apperr.New(apperr.ErrInvalidArgument, "new model", fmt.Sprintf("unsupported AI provider: %s", provider))
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func missingKey(name, key string) error {
	return fmt.Errorf("%s API key not configured. Run: applytrack config set --key %s --value YOUR_KEY", name, key)
}

// gemini calls the Generative Language API
type gemini struct {
	client   *http.Client
	apiKey   string
	model    string
	endpoint string
}

func (g *gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", missingKey("Gemini", "gemini_key")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", strings.TrimRight(g.endpoint, "/"), g.model, url.QueryEscape(g.apiKey))

	body, err := postJSON(ctx, g.client, u, reqBody, nil, "Gemini")
	if err != nil {
		return "", err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// chatCompletions speaks the OpenAI chat API, which LM Studio also serves
type chatCompletions struct {
	client   *http.Client
	name     string
	apiKey   string
	keyHint  string
	model    string
	endpoint string
}

func (c *chatCompletions) Generate(ctx context.Context, prompt string) (string, error) {
	headers := map[string]string{}
	if c.keyHint != "" {
		if c.apiKey == "" {
			return "", missingKey(c.name, c.keyHint)
		}
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
		"max_tokens":  2000,
	}

	body, err := postJSON(ctx, c.client, strings.TrimRight(c.endpoint, "/")+"/v1/chat/completions", reqBody, headers, c.name)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("unexpected response format from %s", c.name)
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

type anthropic struct {
	client   *http.Client
	apiKey   string
	model    string
	endpoint string
}

func (a *anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	if a.apiKey == "" {
		return "", missingKey("Anthropic", "anthropic_key")
	}

	reqBody := map[string]interface{}{
		"model":      a.model,
		"max_tokens": 2048,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}

	body, err := postJSON(ctx, a.client, strings.TrimRight(a.endpoint, "/")+"/v1/messages", reqBody, headers, "Anthropic")
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("unexpected response format from Anthropic")
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}

type ollama struct {
	client   *http.Client
	model    string
	endpoint string
}

func (o *ollama) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
	}

	body, err := postJSON(ctx, o.client, strings.TrimRight(o.endpoint, "/")+"/api/generate", reqBody, nil, "Ollama")
	if err != nil {
		return "", err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	response, ok := result["response"].(string)
	if !ok {
		return "", fmt.Errorf("unexpected response format from Ollama")
	}
	return strings.TrimSpace(response), nil
}

// postJSON sends reqBody and returns the body of a 200 response. Other
// statuses become an error carrying the provider's own message.
func postJSON(ctx context.Context, client *http.Client, u string, reqBody interface{}, headers map[string]string, provider string) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error: %s", provider, providerMessage(body))
	}
	return body, nil
}

// providerMessage pulls error.message out of a JSON error body when present
func providerMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
