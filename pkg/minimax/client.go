package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/config"
	"github.com/papercomputeco/minimax-worker/pkg/conversation"
	"github.com/papercomputeco/minimax-worker/pkg/llm"
)

const (
	// DefaultBaseURL is the public MiniMax API host.
	DefaultBaseURL = "https://api.minimax.chat"

	// DefaultModel is the model every request is sent to.
	DefaultModel = "abab5.5-chat"

	// DefaultTokensToGenerate is the vendor's default generation cap.
	DefaultTokensToGenerate = 1024

	proSuffix = "_pro"
)

// Client sends chat completion requests to MiniMax. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	template         conversation.Template
	source           config.Source
	logger           *zap.Logger
	httpClient       *http.Client
	baseURL          string
	model            string
	tokensToGenerate int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, e.g. for a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient sets the HTTP client. The default client has no timeout;
// callers that need one should set it here or on the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTokensToGenerate overrides the generation length cap.
func WithTokensToGenerate(n int) Option {
	return func(c *Client) { c.tokensToGenerate = n }
}

// NewClient creates a Client that decodes prompts with tpl and reads
// credentials from source on every call.
func NewClient(tpl conversation.Template, source config.Source, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		template:         tpl,
		source:           source,
		logger:           logger,
		httpClient:       &http.Client{},
		baseURL:          DefaultBaseURL,
		model:            DefaultModel,
		tokensToGenerate: DefaultTokensToGenerate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds the Client described by cfg. The first
// configured model name names the conversation template; opts are applied
// after the configured settings.
func NewClientFromConfig(cfg *config.Config, source config.Source, logger *zap.Logger, opts ...Option) *Client {
	name := "minimax-api"
	if len(cfg.Worker.ModelNames) > 0 {
		name = cfg.Worker.ModelNames[0]
	}

	configured := []Option{
		WithBaseURL(cfg.MiniMax.BaseURL),
		WithModel(cfg.MiniMax.Model),
		WithTokensToGenerate(cfg.MiniMax.TokensToGenerate),
	}
	return NewClient(conversation.MiniMax(name), source, logger, append(configured, opts...)...)
}

// Template returns the conversation template the client decodes prompts with.
func (c *Client) Template() conversation.Template {
	return c.template
}

// Model returns the vendor model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Stream starts a completion for the flattened prompt and returns the open
// stream. The caller must Close the stream; cancelling ctx also releases it.
//
// Configuration errors and malformed prompts are reported before any request
// is sent. A non-2xx response is returned as a *TransportError.
func (c *Client) Stream(ctx context.Context, prompt string, params llm.SamplingParams) (*Stream, error) {
	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}

	turns, err := conversation.Decode(prompt, c.template)
	if err != nil {
		return nil, err
	}

	req := c.buildRequest(turns, params)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.endpoint(creds)
	c.logger.Debug("sending request to minimax",
		zap.String("url", redactGroupID(endpoint)),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.ByteString("body", body),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Message: "request failed", Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		terr := mapHTTPError(httpResp)
		c.logger.Error("minimax returned error",
			zap.Int("status", terr.StatusCode),
			zap.String("message", terr.Message),
		)
		return nil, terr
	}

	return newStream(ctx, httpResp.Body, c.logger), nil
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) credentials() (config.Credentials, error) {
	creds, err := c.source.Credentials()
	if err != nil {
		return config.Credentials{}, &ConfigurationError{Field: "credentials", Err: err}
	}
	if creds.GroupID == "" {
		return config.Credentials{}, &ConfigurationError{Field: "group_id"}
	}
	if creds.APIKey == "" {
		return config.Credentials{}, &ConfigurationError{Field: "api_key"}
	}
	return creds, nil
}

func (c *Client) buildRequest(turns []conversation.Turn, params llm.SamplingParams) *llm.ChatRequest {
	return &llm.ChatRequest{
		Model:             c.model,
		Stream:            true,
		TokensToGenerate:  c.tokensToGenerate,
		MaskSensitiveInfo: true,
		Messages:          conversation.Messages(turns),
		Temperature:       params.Temperature,
		TopP:              params.TopP,
		BotSetting:        []llm.BotSetting{},
	}
}

func (c *Client) endpoint(creds config.Credentials) string {
	variant := ""
	if creds.IsPro {
		variant = proSuffix
	}
	q := url.Values{"GroupId": {creds.GroupID}}
	return c.baseURL + "/v1/text/chatcompletion" + variant + "?" + q.Encode()
}

func redactGroupID(endpoint string) string {
	if i := strings.Index(endpoint, "?"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
