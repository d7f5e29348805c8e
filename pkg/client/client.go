// Package client talks to the remote formatting service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/domain"
)

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "http://localhost:8000"

const (
	formatPath    = "/api/format"
	templatesPath = "/api/templates"
	healthPath    = "/health"
)

// Client submits documents to the formatting service.
// It never retries and sets no timeout of its own; ctx is the only way to cancel a call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger configures a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for baseURL. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "tracescribe",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit uploads file for formatting with the given template and returns the formatted
// document bytes. Every failure is returned as a *domain.APIError.
func (c *Client) Submit(ctx context.Context, file domain.FileRef, template domain.TemplateID) ([]byte, error) {
	body, contentType, err := encodeForm(file, template)
	if err != nil {
		return nil, &domain.APIError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+formatPath, body)
	if err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Format request failed", "template", template, "error", err)
		return nil, &domain.APIError{Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	c.logger.Debug("Format response received",
		"template", template,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.APIError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	return data, nil
}

// ListTemplates fetches the templates advertised by the service.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.RemoteTemplate, error) {
	var out []domain.RemoteTemplate
	if err := c.getJSON(ctx, templatesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks that the service answers its health endpoint with status "ok".
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, healthPath, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &domain.APIError{StatusCode: http.StatusOK, Message: fmt.Sprintf("unexpected health status %q", out.Status)}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &domain.APIError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.APIError{Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

func encodeForm(file domain.FileRef, template domain.TemplateID) (io.Reader, string, error) {
	if file.Open == nil {
		return nil, "", fmt.Errorf("file %q has no content", file.Name)
	}
	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	if err := w.WriteField("template_type", string(template)); err != nil {
		return nil, "", fmt.Errorf("failed to write template field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeError turns a non-2xx response into an APIError, preferring the JSON detail field.
func decodeError(resp *http.Response) *domain.APIError {
	var payload struct {
		Detail *string `json:"detail"`
	}
	msg := fmt.Sprintf("Server error: %d", resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Detail != nil && *payload.Detail != "" {
		msg = *payload.Detail
	}
	return &domain.APIError{StatusCode: resp.StatusCode, Message: msg}
}

func transportMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
