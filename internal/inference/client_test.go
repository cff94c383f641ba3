package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	return Config{
		Provider:          ProviderAnthropic,
		APIKey:            "test-key",
		BaseURL:           url,
		Model:             "test-model",
		Timeout:           5 * time.Second,
		MaxRetries:        2,
		BackoffBase:       time.Millisecond,
		MaxConcurrent:     2,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{APIKey: "k", Provider: "mystery"}, nil)
	require.Error(t, err)
}

func TestInvokeAnthropicSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello world"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	text, err := c.Invoke(context.Background(), "planner", "you plan", "build it")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestInvokeRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"recovered"}]}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	text, err := c.Invoke(context.Background(), "ui", "", "in")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvokeDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "planner", "", "in")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load(), "permanent failures must not retry")
	assert.Contains(t, err.Error(), "bad key")
}

func TestInvokeExhaustsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "api", "", "in")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	// First attempt plus MaxRetries.
	assert.Equal(t, int32(cfg.MaxRetries+1), calls.Load())
}

func TestInvokeOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"gpt says hi"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Provider = ProviderOpenAI
	c, err := New(cfg, nil)
	require.NoError(t, err)

	text, err := c.Invoke(context.Background(), "reviewer", "you review", "check this")
	require.NoError(t, err)
	assert.Equal(t, "gpt says hi", text)
}

func TestWithModelOverridesPerRequest(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "planner", "", "in")
	require.NoError(t, err)

	override := c.WithModel("special-model")
	_, err = override.Invoke(context.Background(), "planner", "", "in")
	require.NoError(t, err)

	// The base client is unaffected by the derived one.
	_, err = c.Invoke(context.Background(), "planner", "", "in")
	require.NoError(t, err)

	assert.Equal(t, []string{"test-model", "special-model", "test-model"}, models)

	// No-op overrides return the same client.
	assert.Same(t, c, c.WithModel(""))
	assert.Same(t, c, c.WithModel("test-model"))
}

func TestInvokeCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Invoke(ctx, "planner", "", "in")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
