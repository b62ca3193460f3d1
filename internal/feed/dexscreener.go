package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dexradar/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.dexscreener.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// DexScreenerClient implements Feed against the DexScreener REST API.
type DexScreenerClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures DexScreenerClient.
type ClientOption func(*DexScreenerClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *DexScreenerClient) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *DexScreenerClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *DexScreenerClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *DexScreenerClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *DexScreenerClient) {
		c.client = client
	}
}

// NewDexScreenerClient creates a new DexScreener API client.
func NewDexScreenerClient(opts ...ClientOption) *DexScreenerClient {
	c := &DexScreenerClient{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: 2.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Feed = (*DexScreenerClient)(nil)

// wireProfile is the token-profiles / token-boosts wire format. Boost
// entries carry extra fields we do not consume.
type wireProfile struct {
	URL          string               `json:"url"`
	ChainID      string               `json:"chainId"`
	TokenAddress string               `json:"tokenAddress"`
	Icon         string               `json:"icon"`
	Header       string               `json:"header"`
	OpenGraph    string               `json:"openGraph"`
	Description  string               `json:"description"`
	Links        []domain.ProfileLink `json:"links"`
}

func (w *wireProfile) toDomain() *domain.AssetProfile {
	return &domain.AssetProfile{
		ChainID:      w.ChainID,
		TokenAddress: w.TokenAddress,
		URL:          w.URL,
		Icon:         w.Icon,
		Header:       w.Header,
		OpenGraph:    w.OpenGraph,
		Description:  w.Description,
		Links:        w.Links,
	}
}

// LatestProfiles fetches GET /token-profiles/latest/v1.
func (c *DexScreenerClient) LatestProfiles(ctx context.Context) ([]*domain.AssetProfile, error) {
	body, err := c.get(ctx, c.baseURL+"/token-profiles/latest/v1")
	if err != nil {
		return nil, fmt.Errorf("fetch latest token profiles: %w", err)
	}
	return decodeProfiles(body)
}

// LatestBoostedTokens fetches GET /token-boosts/latest/v1.
func (c *DexScreenerClient) LatestBoostedTokens(ctx context.Context) ([]*domain.AssetProfile, error) {
	body, err := c.get(ctx, c.baseURL+"/token-boosts/latest/v1")
	if err != nil {
		return nil, fmt.Errorf("fetch latest boosted tokens: %w", err)
	}
	return decodeProfiles(body)
}

// PairsFor fetches GET /token-pairs/v1/{chainId}/{tokenAddress}.
// The endpoint returns a bare array; the older /latest/dex/tokens
// shape wraps it in a "pairs" object, which is also tolerated.
func (c *DexScreenerClient) PairsFor(ctx context.Context, chainID, tokenAddress string) ([]*domain.Pair, error) {
	url := fmt.Sprintf("%s/token-pairs/v1/%s/%s", c.baseURL, chainID, tokenAddress)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch pairs for %s/%s: %w", chainID, tokenAddress, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Pairs []*domain.Pair `json:"pairs"`
		}
		if err := decodeNumbers(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode pairs response: %w", err)
		}
		return wrapped.Pairs, nil
	}

	var pairs []*domain.Pair
	if err := decodeNumbers(trimmed, &pairs); err != nil {
		return nil, fmt.Errorf("decode pairs response: %w", err)
	}
	return pairs, nil
}

// decodeProfiles tolerates both the documented single-object response
// and the array the endpoint returns in practice.
func decodeProfiles(body []byte) ([]*domain.AssetProfile, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var single wireProfile
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("decode profile object: %w", err)
		}
		return []*domain.AssetProfile{single.toDomain()}, nil
	}

	var many []wireProfile
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, fmt.Errorf("decode profile array: %w", err)
	}

	profiles := make([]*domain.AssetProfile, 0, len(many))
	for i := range many {
		profiles = append(profiles, many[i].toDomain())
	}
	return profiles, nil
}

// decodeNumbers unmarshals with json.Number preserved, so metric
// fields keep full precision until normalization.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// get performs a GET with retries and exponential backoff.
func (c *DexScreenerClient) get(ctx context.Context, url string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
