// Package generator abstracts the generative-language provider used by the
// sanitization, synthesis and follow-up stages.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"astroscope/internal/common/config"
	apperrors "astroscope/internal/common/errors"
	"astroscope/internal/common/logger"
)

// ErrEmptyOutput is returned when a provider answers with blank text.
var ErrEmptyOutput = errors.New("provider returned empty text")

// Generator turns a prompt into generated text. Calls are stateless: no
// conversation memory is passed to the provider.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Options are the sampling settings shared by all providers.
type Options struct {
	Model           string
	Temperature     float64
	TopK            float64
	TopP            float64
	MaxOutputTokens int
}

func OptionsFromConfig(cfg config.GenAIConfig) Options {
	return Options{
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		TopK:            cfg.TopK,
		TopP:            cfg.TopP,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.GenAIConfig) (Generator, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.APIKey, cfg.BaseURL, opts)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, opts)
	case config.ProviderHTTP:
		return NewHTTP(cfg.BaseURL, cfg.APIKey, opts)
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}
}

// NewOrUnavailable is New, except that a provider which cannot be built is
// replaced by Unavailable so the pipeline still serves degraded answers.
func NewOrUnavailable(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) Generator {
	g, err := New(ctx, cfg)
	if err != nil {
		log.Warn("generative provider unavailable, stages will use fallbacks", map[string]interface{}{
			"provider": cfg.Provider,
			"error":    err.Error(),
		})
		return Unavailable{Reason: err.Error()}
	}
	return g
}

// Unavailable is a Generator that always fails.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("generator unavailable: %s", u.Reason)
}

func (Unavailable) Name() string { return "unavailable" }

type result struct {
	text string
	err  error
}

// GenerateWithin runs one Generate call bounded by timeout. On expiry the
// call's context is cancelled and GenerateWithin returns at once without
// waiting for the provider to settle. Errors are StandardErrors with
// GENERATION_TIMEOUT, GENERATION_FAILED or GENERATION_MALFORMED_OUTPUT.
func GenerateWithin(ctx context.Context, g Generator, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: apperrors.NewGenerationFailedError(fmt.Errorf("provider %s panicked: %v", g.Name(), r))}
			}
		}()
		text, err := g.Generate(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", apperrors.NewGenerationTimeoutError(ctx.Err())
	case r := <-done:
		if r.err != nil {
			if ctx.Err() != nil {
				return "", apperrors.NewGenerationTimeoutError(r.err)
			}
			return "", apperrors.ClassifyTimeout(r.err, apperrors.NewGenerationTimeoutError, apperrors.NewGenerationFailedError)
		}
		if strings.TrimSpace(r.text) == "" {
			return "", apperrors.NewGenerationMalformedOutputError(ErrEmptyOutput)
		}
		return r.text, nil
	}
}

var fenceRe = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")

// StripCodeFences removes markdown code-fence lines (``` or ```json) that
// providers like to wrap structured output in.
func StripCodeFences(text string) string {
	text = fenceRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (Func) Name() string { return "func" }
