package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/oboji/internal/bot"
	"github.com/hyperjump/oboji/pkg/utils"
	"go.uber.org/zap"
)

// DefaultAPIBaseURL is the Discord REST API root.
const DefaultAPIBaseURL = "https://discord.com/api/v10"

const defaultClientTimeout = 15 * time.Second

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL       string
	Token         string
	ApplicationID string
}

// Client calls the Discord REST API as the bot.
type Client struct {
	baseURL string
	token   string
	appID   string
	http    *http.Client
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a REST client. An empty BaseURL uses DefaultAPIBaseURL.
func NewClient(cfg ClientConfig, opts ...ClientOption) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	c := &Client{
		baseURL: base,
		token:   cfg.Token,
		appID:   cfg.ApplicationID,
		http:    &http.Client{Timeout: defaultClientTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type commandPayload struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        int          `json:"type"`
	Options     []bot.Option `json:"options,omitempty"`
}

// RegisterCommands overwrites the application's global commands with defs.
func (c *Client) RegisterCommands(ctx context.Context, defs []bot.Definition) error {
	if c.appID == "" {
		return errors.New("application id is required to register commands")
	}
	payload := make([]commandPayload, 0, len(defs))
	for _, d := range defs {
		payload = append(payload, commandPayload{
			Name:        d.Name,
			Description: d.Description,
			Type:        applicationCommandChatInput,
			Options:     d.Options,
		})
	}
	path := fmt.Sprintf("/applications/%s/commands", url.PathEscape(c.appID))
	if err := c.do(ctx, http.MethodPut, path, payload); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	c.logger.Info("registered commands", zap.Int("count", len(defs)))
	return nil
}

// EditOriginal replaces the content of a deferred interaction response.
func (c *Client) EditOriginal(ctx context.Context, interactionToken, content string) error {
	if c.appID == "" {
		return errors.New("application id is required to edit responses")
	}
	path := fmt.Sprintf("/webhooks/%s/%s/messages/@original",
		url.PathEscape(c.appID), url.PathEscape(interactionToken))
	body := MessageData{Content: utils.Truncate(content, MaxContentLength)}
	if err := c.do(ctx, http.MethodPatch, path, body); err != nil {
		return fmt.Errorf("edit original response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("discord api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

// APIError is a non-2xx reply from the REST API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api returned %d: %s", e.StatusCode, e.Body)
}
