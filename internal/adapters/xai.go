package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goodiebox/boxsense/internal/errors"
	"github.com/goodiebox/boxsense/internal/monitoring"
	"github.com/goodiebox/boxsense/internal/resilience"
)

const (
	// ServiceName identifies the upstream in health tracking and logs
	ServiceName = "xai-api"

	// completionSeed keeps sampling deterministic across calls
	completionSeed = 42

	// separatorToken marks the start of trailing content that is stripped
	// from every completion
	separatorToken = "<|separator|>"
)

// completionRequest is the wire format of the xAI text-completions API.
// Immutable once built.
type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Seed        int     `json:"seed"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// XAIConfig holds the settings the adapter needs for outbound calls
type XAIConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// XAIAdapter calls the xAI text-completions API through a pooled HTTP client
type XAIAdapter struct {
	cfg     XAIConfig
	pool    *resilience.ConnectionPool
	health  *resilience.HealthTracker
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewXAIAdapter creates a new adapter with connection pooling and health tracking
func NewXAIAdapter(cfg XAIConfig, health *resilience.HealthTracker, metrics *monitoring.Metrics, logger *monitoring.Logger) *XAIAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	pool := resilience.NewConnectionPool(10, 20, 30*time.Second, cfg.Timeout)
	health.Register(ServiceName)

	return &XAIAdapter{
		cfg:     cfg,
		pool:    pool,
		health:  health,
		metrics: metrics,
		logger:  logger,
	}
}

// Complete sends one synchronous completion call and returns the cleaned
// text. The caller's context bounds the call; there is no retry here.
func (x *XAIAdapter) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	payload := completionRequest{
		Model:       x.cfg.Model,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Seed:        completionSeed,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewTransportError(fmt.Sprintf("Error calling Grok 3: %s", err), err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + x.cfg.APIKey,
		"Content-Type":  "application/json",
	}

	x.metrics.IncrementCompletionCall()

	start := time.Now()
	resp, err := x.pool.DoRequest(ctx, http.MethodPost, x.cfg.APIURL, headers, body)
	if err != nil {
		transportErr := errors.NewTransportError(fmt.Sprintf("Error calling Grok 3: %s", err), err)
		x.recordFailure(transportErr, 0, time.Since(start))
		return "", transportErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		transportErr := errors.NewTransportError(
			fmt.Sprintf("Error calling Grok 3: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
			nil,
		)
		x.recordFailure(transportErr, resp.StatusCode, time.Since(start))
		return "", transportErr
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		transportErr := errors.NewTransportError(fmt.Sprintf("Error calling Grok 3: failed to decode response: %s", err), err)
		x.recordFailure(transportErr, resp.StatusCode, time.Since(start))
		return "", transportErr
	}

	var text string
	if len(result.Choices) > 0 {
		text = result.Choices[0].Text
	}

	// Strip the separator marker and any trailing content after it
	cleaned := strings.TrimSpace(text)
	if idx := strings.Index(cleaned, separatorToken); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		emptyErr := errors.NewEmptyResponseError("Grok 3 returned an empty response")
		x.recordFailure(emptyErr, resp.StatusCode, time.Since(start))
		return "", emptyErr
	}

	x.health.RecordRequest(ServiceName, true)
	x.logger.ExternalAPILogger("xAI", http.MethodPost, x.cfg.APIURL, resp.StatusCode, time.Since(start), true)
	x.logger.CompletionLogger(cleaned)

	return cleaned, nil
}

func (x *XAIAdapter) recordFailure(err error, statusCode int, duration time.Duration) {
	x.metrics.IncrementCompletionError()
	x.health.RecordError(ServiceName, err)
	x.logger.ExternalAPILogger("xAI", http.MethodPost, x.cfg.APIURL, statusCode, duration, false)
}

// GetPoolStats returns connection pool statistics
func (x *XAIAdapter) GetPoolStats() map[string]interface{} {
	return x.pool.GetStats()
}

// Close closes the connection pool
func (x *XAIAdapter) Close() error {
	return x.pool.Close()
}
