// Package llm abstracts text generation so the exploration layer does not
// depend on a single provider.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client generates text from a prompt. Temperature follows provider
// conventions: 0 for deterministic output, higher for more variety.
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// ProviderAnthropic is currently the only implemented provider.
const ProviderAnthropic = "anthropic"

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
}

// New constructs a Client for the configured provider.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic, "":
		return NewAnthropic(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
