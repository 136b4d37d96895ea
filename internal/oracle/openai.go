package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lexward/wordflow/internal/common"
)

const systemPrompt = `You are a vocabulary classifier. For the given word you must answer with exactly three lines and nothing else:
Language: <the word's language, chosen from the provided list when possible>
Translation: <the English translation of the word>
Category: <one category name from the provided list>`

const defaultUserPrompt = `Word: {word}

Known languages: {languages}
Known categories: {categories}

Classify the word.`

// Config holds configuration for the OpenAI-backed oracle client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   int
}

// openAIClient implements Client using the OpenAI chat completions API.
type openAIClient struct {
	client      *openai.Client
	limiter     *rateLimiter
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewOpenAIClient creates an oracle client backed by the OpenAI API.
func NewOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 150
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		limiter:     newRateLimiter(cfg.RateLimit),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}, nil
}

// Close stops the client's rate limiter.
func (c *openAIClient) Close() error {
	c.limiter.stop()
	return nil
}

// Classify sends one word to the oracle and parses the structured answer.
func (c *openAIClient) Classify(ctx context.Context, req ClassifyRequest) (Classification, error) {
	if req.Word == "" {
		return Classification{}, fmt.Errorf("word is required")
	}

	if err := c.limiter.wait(ctx); err != nil {
		return Classification{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return Classification{}, fmt.Errorf("oracle request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("%w: response contained no choices", common.ErrOracleUnavailable)
	}

	return ParseClassification(resp.Choices[0].Message.Content)
}

// BuildPrompt renders the user prompt for a request, honoring custom
// templates when the session carries them. Templates use {word}, {languages}
// and {categories} placeholders.
func BuildPrompt(req ClassifyRequest) string {
	template := req.LanguagePrompt
	if template == "" {
		template = defaultUserPrompt
	}
	if req.CategoryPrompt != "" {
		template += "\n" + req.CategoryPrompt
	}

	replacer := strings.NewReplacer(
		"{word}", req.Word,
		"{languages}", strings.Join(req.Languages, ", "),
		"{categories}", strings.Join(req.Categories, ", "),
	)
	return replacer.Replace(template)
}
