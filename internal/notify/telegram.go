package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default configuration values.
const (
	DefaultTelegramBaseURL = "https://api.telegram.org"
	DefaultSendTimeout     = 10 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 1 * time.Second

	// Long-poll window for getUpdates; the poll HTTP client timeout
	// must exceed it.
	pollTimeoutSec = 30
)

// TelegramClient implements Notifier and Poller against the Telegram
// Bot API.
type TelegramClient struct {
	baseURL    string
	botToken   string
	chatID     string
	client     *http.Client
	pollClient *http.Client
	maxRetries int
	retryDelay time.Duration
	log        zerolog.Logger

	mu         sync.Mutex
	offset     int64
	totalSends int
	failed     int
}

// TelegramOptions configures TelegramClient.
type TelegramOptions struct {
	BotToken string
	ChatID   string

	// BaseURL overrides the API host, for tests.
	BaseURL string

	// Timeout bounds one sendMessage request. Zero means 10s.
	Timeout time.Duration

	// MaxRetries per sendMessage. Zero means 3.
	MaxRetries int

	// RetryDelay between attempts, fixed, no escalation. Zero means 1s.
	RetryDelay time.Duration

	Logger zerolog.Logger
}

// NewTelegramClient creates a new Telegram Bot API client.
func NewTelegramClient(opts TelegramOptions) *TelegramClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &TelegramClient{
		baseURL:    baseURL,
		botToken:   opts.BotToken,
		chatID:     opts.ChatID,
		client:     &http.Client{Timeout: timeout},
		pollClient: &http.Client{Timeout: (pollTimeoutSec + 5) * time.Second},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        opts.Logger,
	}
}

// Compile-time interface checks.
var (
	_ Notifier = (*TelegramClient)(nil)
	_ Poller   = (*TelegramClient)(nil)
)

func (c *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
}

// Send posts one HTML-formatted message to the configured chat.
// Failed attempts are retried with a fixed delay.
func (c *TelegramClient) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		if lastErr = c.sendOnce(ctx, payload); lastErr == nil {
			c.recordSend(true)
			return nil
		}
		c.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("telegram send failed")
	}

	c.recordSend(false)
	return fmt.Errorf("send message after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *TelegramClient) sendOnce(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("api error: %s", apiResp.Description)
	}
	return nil
}

// telegram getUpdates wire format.
type wireUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Poll long-polls getUpdates and advances the update offset so each
// message is delivered once.
func (c *TelegramClient) Poll(ctx context.Context) ([]InboundMessage, error) {
	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()

	params := url.Values{}
	params.Set("timeout", strconv.Itoa(pollTimeoutSec))
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.methodURL("getUpdates")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll updates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		OK     bool         `json:"ok"`
		Result []wireUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("api error polling updates")
	}

	var messages []InboundMessage
	nextOffset := offset
	for _, u := range apiResp.Result {
		if u.UpdateID >= nextOffset {
			nextOffset = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		messages = append(messages, InboundMessage{
			ChatID: u.Message.Chat.ID,
			Text:   u.Message.Text,
		})
	}

	c.mu.Lock()
	c.offset = nextOffset
	c.mu.Unlock()

	return messages, nil
}

func (c *TelegramClient) recordSend(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalSends++
	if !ok {
		c.failed++
	}
}

// DeliveryStats is a snapshot of send outcomes.
type DeliveryStats struct {
	TotalSends int
	Failed     int
}

// Stats returns current delivery counters.
func (c *TelegramClient) Stats() DeliveryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeliveryStats{TotalSends: c.totalSends, Failed: c.failed}
}
