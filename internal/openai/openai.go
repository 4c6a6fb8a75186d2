package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ctxpkg "github.com/stupiduntilnot/chatrelay/internal/context"
	"github.com/stupiduntilnot/chatrelay/internal/control"
	"github.com/stupiduntilnot/chatrelay/internal/metrics"
	modelpkg "github.com/stupiduntilnot/chatrelay/internal/model"
)

const (
	DefaultURL   = "https://api.openai.com/v1/chat/completions"
	DefaultModel = "gpt-4o-mini"

	temperature   = 0.3
	emptyResponse = "(empty model response)"
)

// Options configures a Client.
type Options struct {
	APIKey    string
	URL       string
	Model     string
	MaxTokens int
	Policy    control.Policy
	Logger    zerolog.Logger
}

// Client is a chat completions client with bounded retries.
type Client struct {
	apiKey     string
	url        string
	model      string
	maxTokens  int
	policy     control.Policy
	httpClient *http.Client
	assembler  ctxpkg.Assembler
	logger     zerolog.Logger
	sleep      func(context.Context, time.Duration) error
}

var _ modelpkg.Provider = (*Client)(nil)

// NewClient creates an OpenAI client. Empty URL and model fall back to the
// public endpoint and gpt-4o-mini; a zero policy falls back to the default.
func NewClient(opts Options) *Client {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = control.DefaultPolicy()
	}
	return &Client{
		apiKey:     opts.APIKey,
		url:        url,
		model:      model,
		maxTokens:  opts.MaxTokens,
		policy:     policy,
		httpClient: &http.Client{},
		assembler:  &ctxpkg.StandardAssembler{},
		logger:     opts.Logger.With().Str("component", "openai").Logger(),
		sleep:      control.Sleep,
	}
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []ctxpkg.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float32          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// usageOrZero reads token counters. Missing usage is optional telemetry and
// never fails a reply; absent counters are reported as 0.
func usageOrZero(u *usage) (int, int) {
	if u == nil {
		return 0, 0
	}
	return u.PromptTokens, u.CompletionTokens
}

type attemptKind int

const (
	attemptOK attemptKind = iota
	attemptRateLimited
	attemptServerError
	attemptTimeout
	attemptFatal
)

func (k attemptKind) label() string {
	switch k {
	case attemptOK:
		return "ok"
	case attemptRateLimited:
		return "rate_limited"
	case attemptServerError:
		return "server_error"
	case attemptTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

type attemptResult struct {
	kind       attemptKind
	status     int
	completion modelpkg.Completion
	err        error
}

// GenerateReply sends system (if non-empty), history and message upstream and
// returns the reply with token usage. 429, 5xx and per-attempt timeouts are
// retried with exponential backoff; everything else fails immediately.
func (c *Client) GenerateReply(ctx context.Context, message, system string, history []ctxpkg.Message) (modelpkg.Completion, error) {
	if c.apiKey == "" {
		return modelpkg.Completion{}, &UpstreamError{Err: ErrCredentialMissing}
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    c.assembler.Assemble(system, history, message),
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return modelpkg.Completion{}, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	requestID := uuid.NewString()
	log := c.logger.With().Str("client_request_id", requestID).Logger()

	var last attemptResult
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		started := time.Now()
		last = c.attempt(ctx, payload, requestID)
		metrics.UpstreamLatency.Observe(time.Since(started).Seconds())
		metrics.UpstreamAttempts.WithLabelValues(last.kind.label()).Inc()

		switch last.kind {
		case attemptOK:
			metrics.Tokens.WithLabelValues("input").Add(float64(last.completion.InputTokens))
			metrics.Tokens.WithLabelValues("output").Add(float64(last.completion.OutputTokens))
			return last.completion, nil
		case attemptFatal:
			return modelpkg.Completion{}, &UpstreamError{Status: last.status, Attempts: attempt + 1, Err: last.err}
		}

		if ctx.Err() != nil {
			return modelpkg.Completion{}, &UpstreamError{Attempts: attempt + 1, Err: ctx.Err()}
		}
		if !c.policy.ShouldRetry(attempt) {
			break
		}
		wait := c.policy.Backoff(attempt)
		metrics.UpstreamRetries.WithLabelValues(last.kind.label()).Inc()
		log.Warn().
			Int("attempt", attempt+1).
			Int("status", last.status).
			Str("reason", last.kind.label()).
			Dur("backoff", wait).
			Msg("upstream retry scheduled")
		if err := c.sleep(ctx, wait); err != nil {
			return modelpkg.Completion{}, &UpstreamError{Attempts: attempt + 1, Err: err}
		}
	}

	log.Error().
		Int("attempts", c.policy.MaxAttempts).
		Str("reason", last.kind.label()).
		Msg("upstream retries exhausted")
	if last.kind == attemptRateLimited {
		return modelpkg.Completion{}, &RateLimitedError{Attempts: c.policy.MaxAttempts}
	}
	return modelpkg.Completion{}, &UpstreamError{Status: last.status, Attempts: c.policy.MaxAttempts, Err: last.err}
}

func (c *Client) attempt(ctx context.Context, payload []byte, requestID string) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return attemptResult{kind: attemptFatal, err: fmt.Errorf("failed to create openai request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Client-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return attemptResult{kind: attemptRateLimited, status: resp.StatusCode, err: errors.New("rate limited")}
	case resp.StatusCode >= 500:
		return attemptResult{
			kind:   attemptServerError,
			status: resp.StatusCode,
			err:    fmt.Errorf("openai server error body=%s", bodySnippet(body)),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return attemptResult{
			kind:   attemptFatal,
			status: resp.StatusCode,
			err:    fmt.Errorf("openai non-success status=%d body=%s", resp.StatusCode, bodySnippet(body)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return attemptResult{
			kind:   attemptFatal,
			status: resp.StatusCode,
			err:    fmt.Errorf("failed to parse openai response: %s", bodySnippet(body)),
		}
	}

	result := modelpkg.Completion{}
	result.InputTokens, result.OutputTokens = usageOrZero(parsed.Usage)

	result.Reply = emptyResponse
	if len(parsed.Choices) > 0 {
		if content := strings.TrimSpace(parsed.Choices[0].Message.Content); content != "" {
			result.Reply = content
		}
	}
	return attemptResult{kind: attemptOK, status: resp.StatusCode, completion: result}
}

// transportFailure treats a per-attempt deadline as a retryable timeout and
// any other transport error, including caller cancellation, as fatal.
func transportFailure(parent context.Context, err error) attemptResult {
	if parent.Err() != nil {
		return attemptResult{kind: attemptFatal, err: parent.Err()}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return attemptResult{kind: attemptTimeout, err: fmt.Errorf("openai request timed out: %w", err)}
	}
	return attemptResult{kind: attemptFatal, err: fmt.Errorf("openai request failed: %w", err)}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
