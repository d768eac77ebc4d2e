// Package llm asks a language model to rewrite a catalog query that found nothing.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dynamite/internal/core"
)

const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	maxQueryLength = 100
)

const suggestPrompt = `You help a chat bot search the Spotify catalog.

The user's search found no tracks. Rewrite it as a better Spotify search query.

Rules:
1. Answer with the query only, on one line, without quotes or explanation
2. Prefer "artist title" when you can identify a specific song
3. Fix obvious typos and drop filler words like "play" or "please"
4. If you cannot improve the query, answer with NONE`

// noSuggestion is what the prompt asks the model to answer when it has nothing better.
const noSuggestion = "NONE"

type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client LLMClient
}

// LLMClient returns the raw model answer for a failed query.
type LLMClient interface {
	Complete(ctx context.Context, system, text string) (string, error)
}

// NewProvider returns nil, nil when no provider is configured.
func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client LLMClient
	var err error

	switch strings.ToLower(config.Provider) {
	case ProviderOpenAI:
		client, err = NewOpenAIClient(config, logger)
	case ProviderAnthropic:
		client, err = NewAnthropicClient(config, logger)
	case ProviderOllama:
		client, err = NewOllamaClient(config, logger)
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return newProvider(config, client, logger), nil
}

func newProvider(config *core.LLMConfig, client LLMClient, logger *zap.Logger) *Provider {
	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}
}

// SuggestQuery returns core.ErrNoResults when the model has no better query
// or repeats the original one.
func (p *Provider) SuggestQuery(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty text provided")
	}

	answer, err := p.client.Complete(ctx, suggestPrompt, text)
	if err != nil {
		return "", err
	}

	query := cleanQuery(answer)
	if query == "" || strings.EqualFold(query, noSuggestion) || strings.EqualFold(query, text) {
		p.logger.Debug("No better query suggested",
			zap.String("text", text),
			zap.String("answer", answer))
		return "", core.ErrNoResults
	}

	p.logger.Info("Query suggested",
		zap.String("text", text),
		zap.String("query", query))
	return query, nil
}

// cleanQuery keeps the first non-empty line of a model answer without
// surrounding quotes or a "Query:" label.
func cleanQuery(answer string) string {
	var line string
	for _, l := range strings.Split(answer, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	if label, rest, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(label), "query") {
		line = strings.TrimSpace(rest)
	}
	line = strings.Trim(line, "\"'`“”")
	line = strings.TrimSpace(line)

	if len(line) > maxQueryLength {
		line = strings.TrimSpace(line[:maxQueryLength])
	}
	return line
}
