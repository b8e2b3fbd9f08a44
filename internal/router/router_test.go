package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifecompass/backend/internal/providers"
	"github.com/lifecompass/backend/internal/providers/providerstest"
)

func newRouter(candidates ...providers.Adapter) *Router {
	return New(providers.NewRegistry(context.Background(), candidates, "", nil), nil)
}

func TestGenerateEmptyRegistry(t *testing.T) {
	unconfigured := providerstest.New("openai", "never").Unconfigured()
	r := newRouter(unconfigured)

	result := r.Generate(context.Background(), "hi", "")

	assert.False(t, result.Success)
	assert.Equal(t, NoProviderID, result.Provider)
	assert.Equal(t, NoProviderMessage, result.ErrorMessage)
	assert.Zero(t, unconfigured.Calls())
	assert.False(t, r.Available())
}

func TestGenerateNilRegistry(t *testing.T) {
	result := New(nil, nil).Generate(context.Background(), "hi", "openai")
	assert.Equal(t, NoProviderMessage, result.ErrorMessage)
}

func TestGenerateDefault(t *testing.T) {
	mock := providerstest.New("mock", "hello")
	r := newRouter(mock)

	result := r.Generate(context.Background(), "hi", "")

	require.True(t, result.Success)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, "mock", result.Provider)
	assert.False(t, result.Fallback)
	assert.EqualValues(t, 1, mock.Calls())
}

func TestGenerateUnknownIDUsesDefault(t *testing.T) {
	a := providerstest.New("openai", "from a")
	b := providerstest.New("anthropic", "from b")
	r := newRouter(a, b)

	result := r.Generate(context.Background(), "hi", "baidu")

	require.True(t, result.Success)
	assert.Equal(t, "openai", result.Provider)
	assert.False(t, result.Fallback)
	assert.Zero(t, b.Calls())
}

func TestGenerateFallsBackOnce(t *testing.T) {
	def := providerstest.New("openai", "default answer")
	explicit := providerstest.Failing("anthropic", "Anthropic API error: 500 - boom")
	r := newRouter(def, explicit)

	result := r.Generate(context.Background(), "hi", "anthropic")

	require.True(t, result.Success)
	assert.True(t, result.Fallback)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "default answer", result.Text)
	assert.EqualValues(t, 1, explicit.Calls())
	assert.EqualValues(t, 1, def.Calls())

	snap := r.Stats()
	assert.EqualValues(t, 2, snap.TotalRequests)
	assert.EqualValues(t, 1, snap.TotalFallbacks)
	assert.EqualValues(t, 1, snap.Providers["anthropic"].Failures)
	assert.Equal(t, "Anthropic API error: 500 - boom", snap.Providers["anthropic"].LastError)
	assert.EqualValues(t, 1, snap.Providers["openai"].Fallbacks)
}

func TestGenerateBothFailReturnsOriginal(t *testing.T) {
	def := providerstest.Failing("openai", "default down")
	explicit := providerstest.Failing("xai", "xai down")
	r := newRouter(def, explicit)

	result := r.Generate(context.Background(), "hi", "xai")

	assert.False(t, result.Success)
	assert.Equal(t, "xai", result.Provider)
	assert.Equal(t, "xai down", result.ErrorMessage)
	assert.False(t, result.Fallback)
	assert.EqualValues(t, 1, def.Calls())
}

func TestGenerateNoRetryOfSameAdapter(t *testing.T) {
	t.Run("ExplicitIsDefault", func(t *testing.T) {
		only := providerstest.Failing("openai", "down")
		r := newRouter(only, providerstest.New("xai", "up"))

		result := r.Generate(context.Background(), "hi", "openai")
		assert.False(t, result.Success)
		assert.EqualValues(t, 1, only.Calls())
	})

	t.Run("UnknownResolvesToDefault", func(t *testing.T) {
		only := providerstest.Failing("openai", "down")
		r := newRouter(only)

		result := r.Generate(context.Background(), "hi", "missing")
		assert.Equal(t, "down", result.ErrorMessage)
		assert.EqualValues(t, 1, only.Calls())
	})

	t.Run("NoExplicitID", func(t *testing.T) {
		def := providerstest.Failing("openai", "down")
		other := providerstest.New("xai", "up")
		r := newRouter(def, other)

		result := r.Generate(context.Background(), "hi", "")
		assert.False(t, result.Success)
		assert.Zero(t, other.Calls())
	})
}

func TestGenerateConcurrent(t *testing.T) {
	mock := providerstest.New("mock", "hello")
	r := newRouter(mock)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, r.Generate(context.Background(), "hi", "").Success)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, mock.Calls())
	assert.EqualValues(t, 50, r.Stats().Providers["mock"].Successes)
}

func TestPercentile(t *testing.T) {
	assert.Zero(t, percentile(nil, 0.95))

	samples := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	assert.Equal(t, 95*time.Millisecond, percentile(samples, 0.95))
	assert.Equal(t, 100*time.Millisecond, percentile(samples, 1))
}
