package gemini

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
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultHTTPTimeout = 10 * time.Minute

	filePollInterval = 2 * time.Second
	filePollAttempts = 60
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TagModel       string
	TimeoutSeconds int
}

// Client wraps the Gemini generateContent and Files APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.cfg.BaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithSleeper overrides how upload-state polling sleeps are performed
// (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a Gemini API client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TagModel:       strings.TrimSpace(cfg.TagModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		sleeper:    time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = "models/gemini-2.5-flash"
	}
	if client.cfg.TagModel == "" {
		client.cfg.TagModel = client.cfg.Model
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Model returns the configured generation model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// TagModel returns the model used for classification requests.
func (c *Client) TagModel() string {
	return c.cfg.TagModel
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateFromFile asks the model to process a previously uploaded file
// together with a prompt and returns the text response.
func (c *Client) GenerateFromFile(ctx context.Context, model string, file File, prompt string) (string, error) {
	if strings.TrimSpace(file.URI) == "" {
		return "", errors.New("gemini generate: file uri required")
	}
	request := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{FileData: &fileData{MIMEType: file.MIMEType, FileURI: file.URI}},
				{Text: prompt},
			},
		}},
	}
	return c.generate(ctx, model, request)
}

// GenerateText asks the model to process a plain text prompt and returns the
// text response.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("gemini generate: prompt required")
	}
	request := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	return c.generate(ctx, model, request)
}

func (c *Client) generate(ctx context.Context, model string, request generateContentRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("gemini generate: api key required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.cfg.Model
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1beta/", model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini generate: build url: %w", err)
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("gemini generate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini generate: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini generate: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("gemini generate: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion generateContentResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("gemini generate: parse response: %w", err)
	}
	if len(completion.Candidates) == 0 {
		return "", errors.New("gemini generate: no candidates returned")
	}

	var builder strings.Builder
	for _, p := range completion.Candidates[0].Content.Parts {
		builder.WriteString(p.Text)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty content (finish_reason=%q)", completion.Candidates[0].FinishReason)
	}
	return text, nil
}

// Summarize condenses a full transcript into the structured meeting summary.
func (c *Client) Summarize(ctx context.Context, transcriptText string) (string, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return "", errors.New("gemini summarize: transcript required")
	}
	return c.GenerateText(ctx, c.cfg.Model, SummaryPrompt+transcriptText)
}

// StripCodeFence removes a surrounding Markdown code fence from a model
// response, tolerating a language tag after the opening fence.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if first != "" && !strings.ContainsAny(first, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// DecodeModelJSON unmarshals a JSON payload from a model response, stripping
// any Markdown code fences first.
func DecodeModelJSON(text string, target any) error {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return errors.New("gemini decode: empty payload")
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("gemini decode: %w", err)
	}
	return nil
}
