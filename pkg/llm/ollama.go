package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/careerprep/internal/config"
)

var _ Generator = (*OllamaClient)(nil)

// OllamaClient wraps the Ollama API client and adds a per-request timeout and
// a consecutive-failure circuit breaker.
type OllamaClient struct {
	api    *api.Client
	cfg    config.OllamaConfig
	model  string
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

// NewOllamaClient creates a new Ollama client wrapper for model.
func NewOllamaClient(cfg config.OllamaConfig, model string, httpClient *http.Client) (*OllamaClient, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &OllamaClient{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		model:  model,
		client: httpClient,
	}
	logger.Info("ollama: client created", slog.String("base_url", cfg.BaseURL), slog.String("model", model), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultOllamaClient(cfg config.OllamaConfig, model string) (*OllamaClient, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewOllamaClient(cfg, model, defaultClient)
}

func (c *OllamaClient) isCircuitOpen() bool {
	if c.cfg.CircuitFailureThreshold <= 0 || atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *OllamaClient) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if c.cfg.CircuitFailureThreshold > 0 && v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close releases idle connections on the underlying HTTP transport when
// supported. Close is idempotent and safe to call multiple times.
func (c *OllamaClient) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Info("ollama: client Close() called - CloseIdleConnections invoked")
		}
	}
	return nil
}

// Health lists the local models and fails when the configured one is absent.
func (c *OllamaClient) Health(ctx context.Context) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("health check failed: %w", err)
	}
	for _, m := range resp.Models {
		if m.Name == c.model || m.Model == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			atomic.StoreInt32(&c.failures, 0)
			return nil
		}
	}

	return fmt.Errorf("health check failed: model %q not available", c.model)
}

// GenerateJSON sends one non-streaming request with JSON output format and
// returns the concatenated response text.
func (c *OllamaClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	if c.isCircuitOpen() {
		return "", ErrCircuitOpen
	}

	ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		System: system,
		Prompt: prompt,
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
	}

	var out strings.Builder
	start := time.Now()
	err := c.api.Generate(ctxReq, req, func(r api.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		c.recordFailure()
		logger.Warn("ollama: generate failed", slog.String("model", c.model), slog.Duration("latency", time.Since(start)), slog.Any("error", err))
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	atomic.StoreInt32(&c.failures, 0)
	logger.Debug("ollama: generate ok", slog.String("model", c.model), slog.Duration("latency", time.Since(start)))
	return out.String(), nil
}
