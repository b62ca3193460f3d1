package volume

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one authenticity request.
const DefaultTimeout = 10 * time.Second

// PocketUniverseClient implements AuthenticityChecker against the
// Pocket Universe verification API.
type PocketUniverseClient struct {
	apiURL   string
	apiToken string
	client   *http.Client
	log      zerolog.Logger
}

// PocketUniverseOptions configures PocketUniverseClient.
type PocketUniverseOptions struct {
	APIURL   string
	APIToken string

	// HTTPClient overrides the default 10s-timeout client.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// NewPocketUniverseClient creates a new Pocket Universe client.
func NewPocketUniverseClient(opts PocketUniverseOptions) *PocketUniverseClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &PocketUniverseClient{
		apiURL:   opts.APIURL,
		apiToken: opts.APIToken,
		client:   client,
		log:      opts.Logger,
	}
}

// Compile-time interface check.
var _ AuthenticityChecker = (*PocketUniverseClient)(nil)

// VerifyVolumeAuthenticity POSTs {"tokenAddress": ...} and reads
// {"volumeAuthentic": bool}. Fail closed: any error means false.
func (c *PocketUniverseClient) VerifyVolumeAuthenticity(ctx context.Context, tokenAddress string) bool {
	if c.apiURL == "" || c.apiToken == "" {
		c.log.Warn().Msg("missing api url/token, cannot verify volume")
		return false
	}
	if tokenAddress == "" {
		c.log.Warn().Msg("no token address provided for volume authenticity check")
		return false
	}

	payload, err := json.Marshal(map[string]string{"tokenAddress": tokenAddress})
	if err != nil {
		c.log.Error().Err(err).Msg("marshal authenticity request")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		c.log.Error().Err(err).Msg("create authenticity request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("token_address", tokenAddress).Msg("authenticity request failed")
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error().Err(err).Msg("read authenticity response")
		return false
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("token_address", tokenAddress).
			Msg("authenticity request rejected")
		return false
	}

	var result struct {
		VolumeAuthentic bool `json:"volumeAuthentic"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.log.Error().Err(err).Msg("decode authenticity response")
		return false
	}

	c.log.Debug().
		Str("token_address", tokenAddress).
		Bool("volume_authentic", result.VolumeAuthentic).
		Msg("authenticity check complete")
	return result.VolumeAuthentic
}
