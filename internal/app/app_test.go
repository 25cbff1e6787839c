package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelace/notelace/internal/config"
	"github.com/notelace/notelace/internal/log"
)

func TestQualifiedModelName(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "gemini",
			cfg:  config.Config{Provider: config.ProviderGemini, ModelName: "gemini-2.5-flash"},
			want: "googleai/gemini-2.5-flash",
		},
		{
			name: "ollama",
			cfg:  config.Config{Provider: config.ProviderOllama, ModelName: "llama3.2"},
			want: "ollama/llama3.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qualifiedModelName(&tt.cfg))
		})
	}
}

func TestEmbedOptionsPerProvider(t *testing.T) {
	// Gemini embeds at 3072 dimensions unless truncated to the schema's
	// width; Ollama models emit their native size and take no options.
	gemini := embedOptions(&config.Config{Provider: config.ProviderGemini})
	require.NotNil(t, gemini)

	assert.Nil(t, embedOptions(&config.Config{Provider: config.ProviderOllama}))
}

func TestCloseWithPartialInitialization(t *testing.T) {
	// Setup releases through Close on any provisioning failure, so Close
	// must tolerate whatever subset of fields got assigned.
	a := &App{Logger: log.NewNop()}
	require.NoError(t, a.Close())
}
