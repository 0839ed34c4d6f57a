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
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File describes a file stored by the Gemini Files API.
type File struct {
	Name     string
	URI      string
	MIMEType string
	State    string
}

const (
	fileStateProcessing = "PROCESSING"
	fileStateActive     = "ACTIVE"
	fileStateFailed     = "FAILED"
)

type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

func (r fileResource) toFile() File {
	return File{Name: r.Name, URI: r.URI, MIMEType: r.MIMEType, State: r.State}
}

// UploadFile pushes a local file to the Files API using the resumable upload
// protocol and waits until the service marks it active.
func (c *Client) UploadFile(ctx context.Context, path, mimeType string) (File, error) {
	var empty File
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return empty, errors.New("gemini upload: api key required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return empty, fmt.Errorf("gemini upload: read %s: %w", path, err)
	}
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	uploadURL, err := c.startUpload(ctx, filepath.Base(path), mimeType, len(data))
	if err != nil {
		return empty, err
	}

	file, err := c.finalizeUpload(ctx, uploadURL, mimeType, data)
	if err != nil {
		return empty, err
	}
	return c.waitForActive(ctx, file)
}

func (c *Client) startUpload(ctx context.Context, displayName, mimeType string, size int) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/upload/v1beta/files")
	if err != nil {
		return "", fmt.Errorf("gemini upload: build url: %w", err)
	}
	metadata, err := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": displayName},
	})
	if err != nil {
		return "", fmt.Errorf("gemini upload: encode metadata: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(metadata))
	if err != nil {
		return "", fmt.Errorf("gemini upload: request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(size))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini upload: start failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("gemini upload: start http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return "", errors.New("gemini upload: missing upload url in start response")
	}
	return uploadURL, nil
}

func (c *Client) finalizeUpload(ctx context.Context, uploadURL, mimeType string, data []byte) (File, error) {
	var empty File
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return empty, fmt.Errorf("gemini upload: request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	req.Header.Set("X-Goog-Upload-Offset", "0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("gemini upload: transfer failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("gemini upload: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("gemini upload: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wrapper struct {
		File fileResource `json:"file"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return empty, fmt.Errorf("gemini upload: parse response: %w", err)
	}
	if wrapper.File.Name == "" {
		return empty, errors.New("gemini upload: response missing file name")
	}
	return wrapper.File.toFile(), nil
}

func (c *Client) waitForActive(ctx context.Context, file File) (File, error) {
	for attempt := 0; attempt < filePollAttempts; attempt++ {
		switch file.State {
		case fileStateActive, "":
			return file, nil
		case fileStateFailed:
			return file, fmt.Errorf("gemini upload: file %s failed processing", file.Name)
		case fileStateProcessing:
			if err := ctx.Err(); err != nil {
				return file, err
			}
			c.sleeper(filePollInterval)
			refreshed, err := c.GetFile(ctx, file.Name)
			if err != nil {
				return file, err
			}
			file = refreshed
		default:
			return file, fmt.Errorf("gemini upload: unexpected file state %q", file.State)
		}
	}
	return file, fmt.Errorf("gemini upload: file %s still processing after %d checks", file.Name, filePollAttempts)
}

// GetFile fetches the current metadata for an uploaded file.
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	var empty File
	name = strings.TrimSpace(name)
	if name == "" {
		return empty, errors.New("gemini get file: name required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1beta/", name)
	if err != nil {
		return empty, fmt.Errorf("gemini get file: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return empty, fmt.Errorf("gemini get file: request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("gemini get file: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("gemini get file: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("gemini get file: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resource fileResource
	if err := json.Unmarshal(body, &resource); err != nil {
		return empty, fmt.Errorf("gemini get file: parse response: %w", err)
	}
	return resource.toFile(), nil
}

// DeleteFile removes an uploaded file from the Files API.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("gemini delete file: name required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1beta/", name)
	if err != nil {
		return fmt.Errorf("gemini delete file: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gemini delete file: request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini delete file: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gemini delete file: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
