package simba

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lookatitude/simba/cache"
	"github.com/lookatitude/simba/llm"
	"github.com/lookatitude/simba/resilience"
	"github.com/lookatitude/simba/schema"
)

// ErrorKind classifies why a Client request failed, mirroring the
// categories core.ErrorCode draws for the rest of the module.
type ErrorKind string

const (
	ErrNetwork               ErrorKind = "network_error"
	ErrAPI                   ErrorKind = "api_error"
	ErrTimeoutKind           ErrorKind = "timeout"
	ErrCircuitOpenKind       ErrorKind = "circuit_open"
	ErrProviderNotConfigured ErrorKind = "provider_not_configured"
)

// ClientError wraps a failure from Client.Request with a classification
// useful for deciding whether the caller should retry or give up.
type ClientError struct {
	Kind   ErrorKind
	Status int
	Body   string
	Err    error
}

func (e *ClientError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("simba: %s: %s", e.Kind, e.Body)
	}
	return fmt.Sprintf("simba: %s: %v", e.Kind, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// Turn is a simplified conversation turn the Executor builds from a
// Program's instruction, demos, and rendered inputs. Client converts Turns
// into schema.Message values before calling the underlying ChatModel.
type Turn struct {
	Role    schema.Role
	Content string
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithCache attaches a response cache keyed on the rendered request.
func WithCache(c cache.Cache, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithCircuitBreaker overrides the default circuit breaker.
func WithCircuitBreaker(b *resilience.CircuitBreaker) ClientOption {
	return func(cl *Client) { cl.breaker = b }
}

// WithConcurrency bounds how many requests the client will issue at once.
func WithConcurrency(n int) ClientOption {
	return func(cl *Client) {
		if n <= 0 {
			n = 1
		}
		cl.sem = make(chan struct{}, n)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.timeout = d }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p resilience.RetryPolicy) ClientOption {
	return func(cl *Client) { cl.retry = p }
}

// WithRateLimiter attaches a provider rate limiter. When set, Request
// acquires a slot with Allow before dispatching and releases it when the
// call returns. The limiter's retry cooldown (Wait) is not applied between
// retried attempts.
func WithRateLimiter(rl *resilience.RateLimiter) ClientOption {
	return func(cl *Client) { cl.limiter = rl }
}

// Client is a resilient façade over an llm.ChatModel, adding response
// caching, circuit breaking, bounded concurrency, timeouts, and retries so
// the SIMBA loop can hammer a provider with a mini-batch × candidate
// Cartesian product without tripping rate limits or cascading failures.
type Client struct {
	model   llm.ChatModel
	cache   cache.Cache
	breaker *resilience.CircuitBreaker
	sem     chan struct{}
	timeout time.Duration
	retry   resilience.RetryPolicy
	ttl     time.Duration
	limiter *resilience.RateLimiter
}

// NewClient builds a Client wrapping model, applying spec-aligned defaults:
// a circuit breaker that opens after 5 consecutive failures and probes
// again after 10s, a retry policy starting at 5s backoff doubling each
// attempt, a 30s per-request timeout, and up to 8 concurrent requests.
func NewClient(model llm.ChatModel, opts ...ClientOption) *Client {
	cl := &Client{
		model:   model,
		breaker: resilience.NewCircuitBreaker(5, 10*time.Second),
		sem:     make(chan struct{}, 8),
		timeout: 30 * time.Second,
		retry: resilience.RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 5 * time.Second,
			MaxBackoff:     60 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         true,
		},
		ttl: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Request sends turns to the underlying model. A cache hit returns at once;
// otherwise the call takes a concurrency slot, then a rate-limiter slot if
// one is attached, and runs under the per-request timeout through the
// circuit breaker, which wraps the retry loop. Successful responses are
// cached. modelConfig may set "temperature" and "max_tokens".
func (c *Client) Request(ctx context.Context, turns []Turn, modelConfig map[string]any) (string, schema.Usage, error) {
	if c.model == nil {
		return "", schema.Usage{}, &ClientError{Kind: ErrProviderNotConfigured, Err: fmt.Errorf("simba: no chat model configured")}
	}

	key := cacheKey(turns, modelConfig)
	if c.cache != nil {
		if v, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if entry, ok := v.(cachedResponse); ok {
				return entry.Text, entry.Usage, nil
			}
		}
	}

	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	if c.limiter != nil {
		if err := c.limiter.Allow(ctx); err != nil {
			return "", schema.Usage{}, &ClientError{Kind: ErrTimeoutKind, Err: err}
		}
		defer c.limiter.Release()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(reqCtx, func(ctx context.Context) (any, error) {
		return resilience.Retry(ctx, c.retry, func(ctx context.Context) (*schema.AIMessage, error) {
			return c.invoke(ctx, turns, modelConfig)
		})
	})
	if err != nil {
		return "", schema.Usage{}, classify(err)
	}

	msg := result.(*schema.AIMessage)
	text := msg.Text()
	usage := msg.Usage

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, cachedResponse{Text: text, Usage: usage}, c.ttl)
	}

	return text, usage, nil
}

type cachedResponse struct {
	Text  string
	Usage schema.Usage
}

func (c *Client) invoke(ctx context.Context, turns []Turn, modelConfig map[string]any) (*schema.AIMessage, error) {
	messages := make([]schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case schema.RoleSystem:
			messages = append(messages, schema.NewSystemMessage(t.Content))
		case schema.RoleAI:
			messages = append(messages, schema.NewAIMessage(t.Content))
		default:
			messages = append(messages, schema.NewHumanMessage(t.Content))
		}
	}

	var opts []llm.GenerateOption
	if v, ok := modelConfig["temperature"].(float64); ok {
		opts = append(opts, llm.WithTemperature(v))
	}
	if v, ok := modelConfig["max_tokens"].(int); ok {
		opts = append(opts, llm.WithMaxTokens(v))
	}

	msg, err := c.model.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if err == resilience.ErrCircuitOpen {
		return &ClientError{Kind: ErrCircuitOpenKind, Err: err}
	}
	if err == context.DeadlineExceeded {
		return &ClientError{Kind: ErrTimeoutKind, Err: err}
	}
	var ce *ClientError
	if as, ok := err.(*ClientError); ok {
		ce = as
		return ce
	}
	return &ClientError{Kind: ErrAPI, Err: err, Body: err.Error()}
}

func cacheKey(turns []Turn, modelConfig map[string]any) string {
	payload, _ := json.Marshal(struct {
		Turns  []Turn
		Config map[string]any
	}{Turns: turns, Config: modelConfig})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
