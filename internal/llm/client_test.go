package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	client, err := New(Config{Provider: "anthropic", APIKey: "test-key"})
	require.NoError(t, err)
	require.IsType(t, &Anthropic{}, client)

	// Blank provider falls back to the default.
	client, err = New(Config{APIKey: "test-key"})
	require.NoError(t, err)
	require.IsType(t, &Anthropic{}, client)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "gemini", APIKey: "test-key"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown llm provider")
}

func TestNewAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic("", "")
	require.Error(t, err)
}
