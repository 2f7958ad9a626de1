package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"
)

const captionSystemPrompt = `You are an assistant that describes scanned documents and images.
Given the raw OCR text extracted from an image, produce a concise structured
description covering: the type of document, its apparent purpose, the key
information it contains, and any notable entities (names, dates, amounts).
Base the description only on the OCR text provided.`

// CaptionConfig represents the configuration for the image description client.
type CaptionConfig struct {
	BaseURL     string // OpenAI-compatible endpoint
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	RateLimit   float64 // requests per second
}

// Captioner turns OCR output into an AI-generated document description
// using an OpenAI-compatible chat model. When no API key is configured
// the captioner is disabled and image extraction falls back to OCR text
// alone.
type Captioner struct {
	config  CaptionConfig
	llm     llms.Model
	limiter *rate.Limiter
	enabled bool
}

// NewCaptionerWithConfig creates a new Captioner with the given configuration.
func NewCaptionerWithConfig(config CaptionConfig) (*Captioner, error) {
	// Validate and set default values for config fields if necessary
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Model == "" {
		config.Model = "openai/gpt-oss-20b"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Temperature <= 0 || config.Temperature > 2 {
		config.Temperature = 0.3
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2.0
	}

	c := &Captioner{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}

	if config.APIKey == "" {
		return c, nil
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize caption model: %w", err)
	}

	c.llm = llm
	c.enabled = true
	return c, nil
}

// Enabled reports whether description generation is available.
func (c *Captioner) Enabled() bool {
	return c.enabled
}

// Describe generates a structured description of a document from its
// OCR text. Calls are rate limited to stay under the provider's quota.
func (c *Captioner) Describe(ctx context.Context, ocrText string) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("caption model is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("caption rate limit: %w", err)
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, captionSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman,
			fmt.Sprintf("OCR text:\n%s", ocrText)),
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(c.config.MaxTokens),
		llms.WithTemperature(c.config.Temperature))
	if err != nil {
		return "", fmt.Errorf("caption error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("caption error: empty response")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
