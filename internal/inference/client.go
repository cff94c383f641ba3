package inference

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/forged/internal/inference")

// Provider selects the wire format of the external service.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o"

	defaultTimeout       = 3 * time.Minute
	defaultMaxRetries    = 3
	defaultBackoffBase   = 500 * time.Millisecond
	defaultMaxConcurrent = 4
	defaultRateLimit     = 2.0
	defaultBurst         = 4

	maxResponseTokens = 8192
	// Low temperature keeps specialist output consistent across retries.
	requestTemperature = 0.3
)

// Client is the uniform call into the external text-generation service.
// role labels the calling agent for error reporting and tracing;
// instructions is the role-specific system prompt; input is the user payload.
type Client interface {
	Invoke(ctx context.Context, role, instructions, input string) (string, error)
}

// ModelSelector is implemented by clients that can derive a variant pinned to
// a specific model, for per-request model overrides.
type ModelSelector interface {
	WithModel(model string) Client
}

// Config holds gateway settings.
type Config struct {
	Provider Provider

	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds each individual call, including retries' single
	// attempts (each attempt gets the full timeout).
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first for
	// transient failures.
	MaxRetries int

	// BackoffBase is the delay before the first retry; it doubles per
	// attempt.
	BackoffBase time.Duration

	// MaxConcurrent bounds simultaneous outbound calls across all runs so
	// one run's fan-out cannot starve others.
	MaxConcurrent int

	// RequestsPerSecond and Burst configure the outbound rate limiter.
	RequestsPerSecond float64
	Burst             int
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.BaseURL = defaultOpenAIBaseURL
		default:
			c.BaseURL = defaultAnthropicBaseURL
		}
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = defaultOpenAIModel
		default:
			c.Model = defaultAnthropicModel
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRateLimit
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
}

// HTTPClient implements Client against an Anthropic- or OpenAI-shaped HTTP
// API. It is safe for concurrent use and may be shared across runs.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sem        chan struct{}
	logger     *zap.Logger
}

// New creates a gateway client. logger may be nil.
func New(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("inference: API key is required")
	}
	cfg.applyDefaults()
	switch cfg.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("inference: unknown provider %q", cfg.Provider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		logger:     logger,
	}, nil
}

// WithModel returns a client identical to c that issues requests for model.
// The HTTP transport, rate limiter, and concurrency semaphore are shared, so
// per-request overrides still count against the global outbound budget.
func (c *HTTPClient) WithModel(model string) Client {
	if model == "" || model == c.cfg.Model {
		return c
	}
	clone := *c
	clone.cfg.Model = model
	return &clone
}

// Invoke sends one request and returns the normalized response text.
// Transient failures are retried with exponential backoff up to MaxRetries;
// permanent failures return immediately.
func (c *HTTPClient) Invoke(ctx context.Context, role, instructions, input string) (string, error) {
	ctx, span := tracer.Start(ctx, "inference.invoke")
	span.SetAttributes(
		attribute.String("inference.role", role),
		attribute.String("inference.provider", string(c.cfg.Provider)),
		attribute.String("inference.model", c.cfg.Model),
	)
	defer span.End()

	// Bound outbound concurrency across all runs.
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return "", &Error{Role: role, Retryable: false, Cause: ctx.Err()}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BackoffBase * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying inference call",
				zap.String("role", role),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &Error{Role: role, Retryable: false, Cause: ctx.Err()}
			}
		}

		text, err := c.doRequest(ctx, role, instructions, input)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return "", err
		}
	}

	return "", &Error{Role: role, Retryable: true,
		Cause: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

func (c *HTTPClient) doRequest(ctx context.Context, role, instructions, input string) (string, error) {
	switch c.cfg.Provider {
	case ProviderOpenAI:
		return c.doOpenAI(ctx, role, instructions, input)
	default:
		return c.doAnthropic(ctx, role, instructions, input)
	}
}

// classifyStatus maps an HTTP status to the transient/permanent split:
// rate limits and server errors retry, everything else fails immediately.
func classifyStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
