// internal/generator/http.go
package generator

import (
	"context"
	"fmt"
	"strings"

	commonhttp "astroscope/internal/common/http"
)

// HTTPGenerator posts prompts to a generic JSON generation service exposing
// POST {base}/api/ai/generate.
type HTTPGenerator struct {
	client  *commonhttp.Client
	baseURL string
	opts    Options
}

type httpGenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type httpGenerateResponse struct {
	Text string `json:"text"`
}

func NewHTTP(baseURL, apiKey string, opts Options) (*HTTPGenerator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required for the http provider")
	}
	client := commonhttp.NewClient(0)
	if apiKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &HTTPGenerator{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    opts,
	}, nil
}

func (g *HTTPGenerator) Name() string { return "http" }

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out httpGenerateResponse
	err := g.client.PostJSON(ctx, g.baseURL+"/api/ai/generate", httpGenerateRequest{
		Prompt:      prompt,
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxOutputTokens,
		Temperature: g.opts.Temperature,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("http generate: %w", err)
	}
	return out.Text, nil
}
