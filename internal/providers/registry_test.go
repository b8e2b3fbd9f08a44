package providers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifecompass/backend/pkg/types"
)

// offline is a stub without credentials
type offline struct{ *Stub }

func (offline) IsConfigured(context.Context) bool { return false }

func TestRegistryKeepsOnlyConfigured(t *testing.T) {
	candidates := []Adapter{
		offline{NewStub("google", "g")},
		NewStub("openai", "o"),
		nil,
		NewStub("anthropic", "a"),
		NewStub("openai", "duplicate"),
	}

	reg := NewRegistry(context.Background(), candidates, "", nil)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"openai", "anthropic"}, reg.IDs())
	assert.Equal(t, "openai", reg.DefaultID())

	_, ok := reg.Lookup("google")
	assert.False(t, ok)

	status := reg.Status()
	assert.Equal(t, status.TotalConfigured, len(status.Configured))
	assert.Equal(t, 2, status.TotalConfigured)
	assert.Equal(t, "openai", status.Primary)
	assert.Equal(t, PreferenceOrder, status.Available)
}

func TestRegistryDefaultSelection(t *testing.T) {
	build := func(override string) *Registry {
		return NewRegistry(context.Background(), []Adapter{
			NewStub("openai", "o"),
			NewStub("ollama", "l"),
		}, override, nil)
	}

	t.Run("FirstConfigured", func(t *testing.T) {
		assert.Equal(t, "openai", build("").DefaultID())
	})

	t.Run("ConfiguredOverride", func(t *testing.T) {
		assert.Equal(t, "ollama", build("ollama").DefaultID())
	})

	t.Run("UnconfiguredOverrideIgnored", func(t *testing.T) {
		assert.Equal(t, "openai", build("anthropic").DefaultID())
	})
}

func TestRegistryGetFallsBackToDefault(t *testing.T) {
	reg := NewRegistry(context.Background(), []Adapter{
		NewStub("openai", "o"),
		NewStub("xai", "x"),
	}, "", nil)

	assert.Equal(t, "xai", reg.Get("xai").ID())
	assert.Equal(t, "openai", reg.Get("baidu").ID())
	assert.Equal(t, "openai", reg.Get("").ID())
}

func TestEmptyRegistry(t *testing.T) {
	reg := NewRegistry(context.Background(), nil, "openai", nil)

	assert.Zero(t, reg.Len())
	assert.Nil(t, reg.Default())
	assert.Nil(t, reg.Get("openai"))
	assert.Empty(t, reg.DefaultID())

	status := reg.Status()
	assert.NotNil(t, status.Configured)
	assert.Zero(t, status.TotalConfigured)
}

func TestRegistryFromConfig(t *testing.T) {
	// closed server so the Ollama health check fails fast
	srv := httptest.NewServer(nil)
	deadURL := srv.URL
	srv.Close()

	t.Run("KeyedAdaptersOnly", func(t *testing.T) {
		cfg := &types.ProvidersConfig{
			OpenAI:     types.ProviderConfig{APIKey: "sk"},
			OpenRouter: types.ProviderConfig{APIKey: "or"},
			Ollama:     types.OllamaConfig{URL: deadURL},
		}
		reg := NewRegistryFromConfig(context.Background(), cfg, nil)

		assert.Equal(t, []string{IDOpenAI, IDOpenRouter}, reg.IDs())
		assert.Equal(t, IDOpenAI, reg.DefaultID())
	})

	t.Run("PrimaryOverride", func(t *testing.T) {
		cfg := &types.ProvidersConfig{
			Primary:   IDAnthropic,
			OpenAI:    types.ProviderConfig{APIKey: "sk"},
			Anthropic: types.ProviderConfig{APIKey: "ant"},
			Ollama:    types.OllamaConfig{URL: deadURL},
		}
		reg := NewRegistryFromConfig(context.Background(), cfg, nil)
		assert.Equal(t, IDAnthropic, reg.DefaultID())
	})

	t.Run("StubOnly", func(t *testing.T) {
		cfg := &types.ProvidersConfig{
			Ollama: types.OllamaConfig{URL: deadURL},
			Stub:   types.StubConfig{Enabled: true, Reply: "offline"},
		}
		reg := NewRegistryFromConfig(context.Background(), cfg, nil)
		require.Equal(t, 1, reg.Len())

		result := reg.Default().GenerateText(context.Background(), "hi")
		assert.True(t, result.Success)
		assert.Equal(t, "offline", result.Text)
	})

	t.Run("Nothing", func(t *testing.T) {
		reg := NewRegistryFromConfig(context.Background(), &types.ProvidersConfig{Ollama: types.OllamaConfig{URL: deadURL}}, nil)
		assert.Zero(t, reg.Len())
	})
}
