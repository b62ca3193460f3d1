package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"dexradar/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.rugcheck.xyz/v1/tokens"
	DefaultTimeout = 10 * time.Second

	// Health thresholds mirrored by Stats.Healthy.
	maxConsecutiveFailures = 5
	maxErrorRate           = 0.25
)

// RugCheckClient implements Client against the RugCheck REST API.
type RugCheckClient struct {
	baseURL string
	client  *http.Client

	mu                  sync.Mutex
	totalRequests       int
	failedRequests      int
	consecutiveFailures int
}

// RugCheckOption configures RugCheckClient.
type RugCheckOption func(*RugCheckClient)

// WithRugCheckBaseURL overrides the API base URL.
func WithRugCheckBaseURL(u string) RugCheckOption {
	return func(c *RugCheckClient) {
		c.baseURL = u
	}
}

// WithRugCheckTimeout sets HTTP client timeout.
func WithRugCheckTimeout(d time.Duration) RugCheckOption {
	return func(c *RugCheckClient) {
		c.client.Timeout = d
	}
}

// WithRugCheckHTTPClient sets custom http.Client.
func WithRugCheckHTTPClient(client *http.Client) RugCheckOption {
	return func(c *RugCheckClient) {
		c.client = client
	}
}

// NewRugCheckClient creates a new RugCheck API client.
func NewRugCheckClient(opts ...RugCheckOption) *RugCheckClient {
	c := &RugCheckClient{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*RugCheckClient)(nil)

// wireReport matches the /report/summary response. Score is a pointer
// so a missing field is distinguishable from zero.
type wireReport struct {
	Score        *int                 `json:"score"`
	Risks        []domain.RiskFinding `json:"risks"`
	TokenProgram string               `json:"tokenProgram"`
	TokenType    string               `json:"tokenType"`
}

// Report fetches GET {base}/{tokenAddress}/report/summary.
func (c *RugCheckClient) Report(ctx context.Context, tokenAddress string) (*domain.RiskReport, error) {
	if tokenAddress == "" {
		return nil, fmt.Errorf("no token address provided")
	}

	url := fmt.Sprintf("%s/%s/report/summary", c.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var wire wireReport
	if err := json.Unmarshal(body, &wire); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if wire.Score == nil {
		c.recordFailure()
		return nil, fmt.Errorf("%w: missing risk score in response", ErrUnavailable)
	}

	c.recordSuccess()
	return &domain.RiskReport{
		Score:        *wire.Score,
		Risks:        wire.Risks,
		TokenProgram: wire.TokenProgram,
		TokenType:    wire.TokenType,
	}, nil
}

func (c *RugCheckClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.consecutiveFailures = 0
}

func (c *RugCheckClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.failedRequests++
	c.consecutiveFailures++
}

// Stats is a snapshot of the client's delivery health.
type Stats struct {
	TotalRequests       int
	FailedRequests      int
	ConsecutiveFailures int
	ErrorRate           float64
	Healthy             bool
}

// Stats returns current health counters.
func (c *RugCheckClient) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if c.totalRequests > 0 {
		rate = float64(c.failedRequests) / float64(c.totalRequests)
	}
	return Stats{
		TotalRequests:       c.totalRequests,
		FailedRequests:      c.failedRequests,
		ConsecutiveFailures: c.consecutiveFailures,
		ErrorRate:           rate,
		Healthy:             c.consecutiveFailures < maxConsecutiveFailures && rate < maxErrorRate,
	}
}
