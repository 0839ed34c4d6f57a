package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"minutes/internal/config"
)

var minuteTokenPattern = regexp.MustCompile(`/minutes/([a-zA-Z0-9]+)`)

// ErrNoMinuteToken is returned when a URL does not reference a Lark minutes
// recording.
var ErrNoMinuteToken = errors.New("lark: no minute token in url")

// ExtractMinuteToken pulls the minute token out of a Lark minutes URL.
func ExtractMinuteToken(meetingURL string) (string, error) {
	match := minuteTokenPattern.FindStringSubmatch(meetingURL)
	if match == nil {
		return "", fmt.Errorf("%w: %s", ErrNoMinuteToken, meetingURL)
	}
	return match[1], nil
}

// Meeting describes the metadata returned for a minutes recording.
type Meeting struct {
	Token           string
	Title           string
	Owner           string
	Participants    []string
	DurationSeconds int64
}

// ParticipantsJSON renders the participant list as a JSON array, or empty
// when there are none.
func (m Meeting) ParticipantsJSON() string {
	if len(m.Participants) == 0 {
		return ""
	}
	data, err := json.Marshal(m.Participants)
	if err != nil {
		return ""
	}
	return string(data)
}

// Client accesses the Lark Minutes API for one configured tenant domain.
type Client struct {
	domain         string
	httpClient     *http.Client
	downloadClient *http.Client
	tokens         *TokenCache
}

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the client used for metadata requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDownloadClient overrides the client used for media downloads.
func WithDownloadClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.downloadClient = client
		}
	}
}

// WithDomain overrides the tenant domain (useful for tests, where it may be
// a host:port).
func WithDomain(domain string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(domain) != "" {
			c.domain = strings.TrimSpace(domain)
		}
	}
}

// NewClient builds a Minutes API client from config. The token cache is
// owned by the client and persisted at cfg.Lark.TokenPath.
func NewClient(cfg *config.Config, tokens *TokenCache, opts ...ClientOption) *Client {
	requestTimeout := time.Duration(cfg.Lark.RequestTimeout) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	downloadTimeout := time.Duration(cfg.Lark.DownloadTimeout) * time.Second
	if downloadTimeout <= 0 {
		downloadTimeout = 5 * time.Minute
	}

	client := &Client{
		domain:         strings.TrimSpace(cfg.Lark.Domain),
		httpClient:     &http.Client{Timeout: requestTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		tokens:         tokens,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) baseURL() string {
	domain := c.domain
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + domain
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	if c.domain == "" {
		return errors.New("lark: tenant domain not configured")
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("lark: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lark: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lark: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("lark: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("lark: parse response: %w", err)
	}
	return nil
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (e apiEnvelope) ok() bool {
	return e.Msg == "success" || e.Code == 0
}

type meetingInfoData struct {
	Title        string   `json:"title"`
	Owner        string   `json:"owner"`
	Participants []string `json:"participants"`
	Duration     int64    `json:"duration"`
}

// MeetingInfo fetches the title, owner, participants, and duration of a
// recording.
func (c *Client) MeetingInfo(ctx context.Context, minuteToken string) (Meeting, error) {
	var empty Meeting
	minuteToken = strings.TrimSpace(minuteToken)
	if minuteToken == "" {
		return empty, errors.New("lark: minute token required")
	}

	query := url.Values{}
	query.Set("object_token", minuteToken)
	query.Set("language", "en_us")

	var envelope apiEnvelope
	if err := c.get(ctx, "/minutes/api/info", query, &envelope); err != nil {
		return empty, err
	}
	if !envelope.ok() {
		return empty, fmt.Errorf("lark: meeting info rejected: %s", envelope.Msg)
	}

	var data meetingInfoData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return empty, fmt.Errorf("lark: parse meeting info: %w", err)
	}
	return Meeting{
		Token:           minuteToken,
		Title:           strings.TrimSpace(data.Title),
		Owner:           strings.TrimSpace(data.Owner),
		Participants:    data.Participants,
		DurationSeconds: data.Duration,
	}, nil
}

type meetingStatusData struct {
	VideoInfo struct {
		VideoDownloadURL string `json:"video_download_url"`
	} `json:"video_info"`
}

// DownloadURL resolves the media download URL for a recording.
func (c *Client) DownloadURL(ctx context.Context, minuteToken string) (string, error) {
	query := url.Values{}
	query.Set("object_token", minuteToken)
	query.Set("with_transcript", "true")
	query.Set("language", "en_us")

	var envelope apiEnvelope
	if err := c.get(ctx, "/minutes/api/status", query, &envelope); err != nil {
		return "", err
	}
	if !envelope.ok() {
		return "", fmt.Errorf("lark: meeting status rejected: %s", envelope.Msg)
	}

	var data meetingStatusData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return "", fmt.Errorf("lark: parse meeting status: %w", err)
	}
	downloadURL := strings.TrimSpace(data.VideoInfo.VideoDownloadURL)
	if downloadURL == "" {
		return "", errors.New("lark: recording has no download url")
	}
	return downloadURL, nil
}

// DownloadRecording streams the recording media to dest. A partial file left
// by a failed transfer is removed.
func (c *Client) DownloadRecording(ctx context.Context, minuteToken, dest string) error {
	downloadURL, err := c.DownloadURL(ctx, minuteToken)
	if err != nil {
		return err
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("lark: download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("lark: download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lark: download http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("lark: ensure download dir: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("lark: create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("lark: write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("lark: close %s: %w", dest, err)
	}
	return nil
}
