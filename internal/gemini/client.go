// Package gemini asks a generative-AI endpoint questions grounded in the knowledge document.
// Every failure is turned into a user-facing reply string; Ask never returns an error.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the generateContent URL used when none is configured.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// DefaultTimeout bounds one request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Replies returned by Ask on failure.
const (
	MsgNotConfigured = "⚠️ A IA não está configurada (GEMINI_API_KEY ausente)."
	MsgTimeout       = "⏱️ A IA demorou demais para responder. Tente novamente."
	msgTransport     = "⚠️ Erro ao contatar a IA: %v"
	msgStatus        = "⚠️ A IA retornou um erro (HTTP %d): %s"
	msgParse         = "⚠️ Erro ao interpretar a resposta da IA: %v"
)

const (
	promptPreamble  = "Você é o Oboji, assistente deste servidor. Responda em português, de forma curta, usando as informações abaixo quando forem relevantes.\n\n"
	promptSeparator = "\n\n---\nPergunta do usuário: "
)

// KnowledgeSource supplies the grounding text. It must not fail; an empty string means no knowledge.
type KnowledgeSource interface {
	Text(ctx context.Context) string
}

// Config holds client settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client is the AI query client.
type Client struct {
	endpoint   string
	knowledge  KnowledgeSource
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the HTTP client. Its Timeout is forced to the configured
// timeout when unset, so requests are always bounded.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client using cfg; knowledge may be nil.
func NewClient(cfg Config, knowledge KnowledgeSource, opts ...ClientOption) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		endpoint:  endpoint,
		knowledge: knowledge,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	} else if c.httpClient.Timeout <= 0 {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
	return c
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// BuildPrompt concatenates the preamble, the knowledge text and the question.
func BuildPrompt(knowledge, question string) string {
	return promptPreamble + knowledge + promptSeparator + question
}

// Ask sends question, grounded in the knowledge document, and returns the answer text
// or a user-facing error string. With an empty apiKey no request is made.
func (c *Client) Ask(ctx context.Context, question, apiKey string) string {
	if strings.TrimSpace(apiKey) == "" {
		return MsgNotConfigured
	}

	knowledge := ""
	if c.knowledge != nil {
		knowledge = c.knowledge.Text(ctx)
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(knowledge, question)}}}},
	})
	if err != nil {
		return fmt.Sprintf(msgTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf(msgTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Warn("ai request timed out", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return MsgTimeout
		}
		c.logger.Error("ai request failed", zap.Error(err))
		return fmt.Sprintf(msgTransport, unwrapURLError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Warn("ai response timed out", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return MsgTimeout
		}
		c.logger.Error("ai response read failed", zap.Error(err))
		return fmt.Sprintf(msgTransport, err)
	}
	c.logger.Debug("ai response received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		c.logger.Error("ai endpoint returned an error", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return fmt.Sprintf(msgStatus, resp.StatusCode, msg)
	}

	text, err := extractAnswer(data)
	if err != nil {
		c.logger.Error("ai response not understood", zap.Error(err))
		return fmt.Sprintf(msgParse, err)
	}
	return text
}

// extractAnswer returns candidates[0].content.parts[0].text.
func extractAnswer(data []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}
	first := resp.Candidates[0].Content
	if first == nil || len(first.Parts) == 0 {
		return "", errors.New("first candidate has no content parts")
	}
	if first.Parts[0].Text == nil {
		return "", errors.New("first content part has no text")
	}
	return *first.Parts[0].Text, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// unwrapURLError drops the "Post <url>:" prefix so the endpoint, which may carry
// credentials in a query string, is not echoed to users.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
