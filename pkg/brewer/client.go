// Package brewer is the client for the remote card-recommendation service
// that produces raw deck lists from a finalized consultation.
package brewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/resilience"
)

// Client defines the recommendation-service operations used by the
// generation orchestrator.
type Client interface {
	// GenerateDeck issues one generation request. Transient failures
	// (timeouts, 5xx, 429) come back wrapped as resilience.TransientError
	// so the orchestrator's retry predicate can classify them.
	GenerateDeck(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is the wire request to the recommendation service.
type GenerateRequest struct {
	SessionID        string                      `json:"sessionId"`
	ConsultationData model.ConsultationRecord    `json:"consultationData"`
	Commander        string                      `json:"commander"`
	Constraints      model.GenerationConstraints `json:"constraints"`
}

// GenerateResponse is the raw service output handed to the deck assembler.
type GenerateResponse struct {
	DeckID    string       `json:"deckId"`
	Name      string       `json:"name,omitempty"`
	CardCount int          `json:"cardCount"`
	Cards     []model.Card `json:"cards"`
}

// Option configures the brewer client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request throttle (2 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithBreaker installs a circuit breaker in front of the service.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a recommendation-service client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.brewery.cards/v1",
		limiter: rate.NewLimiter(2, 2),
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GenerateDeck(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, err
		}
	}
	resp, err := c.generateDeck(ctx, req)
	if c.breaker != nil {
		c.breaker.Record(err)
	}
	return resp, err
}

func (c *httpClient) generateDeck(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "brewer: rate limit wait")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "brewer: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/decks/generate", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "brewer: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport-level failures are retry candidates.
		return nil, resilience.NewTransientError(eris.Wrap(err, "brewer: request"), 0)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "brewer: read response"), httpResp.StatusCode)
	}

	if httpResp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("brewer: service returned %d: %s", httpResp.StatusCode, truncate(respBody, 200)))
		if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
			return nil, resilience.NewTransientError(err, httpResp.StatusCode)
		}
		return nil, err
	}

	var out GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "brewer: decode response")
	}
	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
