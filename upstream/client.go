// Package upstream talks to the external generation service over HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"vidgen-gateway/config"
	"vidgen-gateway/errno"
)

const (
	apiKeyHeader = "X-API-Key"

	// error bodies and upload relays are small JSON documents
	maxErrorBody = 64 << 10
	maxRelayBody = 8 << 20
)

var validate = validator.New()

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	// api carries a whole-request timeout; stream only bounds the wait for
	// response headers so long media bodies are not cut off.
	api    *http.Client
	stream *http.Client
}

func New(cfg config.UpstreamConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	// keep Content-Length/Content-Range intact for range requests
	transport.DisableCompression = true

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		api:     &http.Client{Timeout: cfg.Timeout},
		stream:  &http.Client{Transport: transport},
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errno.Wrap(errno.ErrInternal, "", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	return req, nil
}

func unavailable(err error) error {
	return errno.Wrap(errno.ErrUpstreamUnavailable, "", err)
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt               string `json:"prompt"`
	Resolution           string `json:"resolution"`
	IncludeAudio         bool   `json:"include_audio"`
	Voice                string `json:"voice"`
	Language             string `json:"language,omitempty"`
	SyncMethod           string `json:"sync_method"`
	UploadedFilesContext string `json:"uploaded_files_context,omitempty"`
}

type generateResponse struct {
	VideoID *string `json:"video_id"`
}

// Generate starts a job and returns the service's job id.
func (c *Client) Generate(ctx context.Context, in GenerateRequest) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", errno.Wrap(errno.ErrInternal, "", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("generate"), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return "", unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", generateFailure(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errno.Wrap(errno.ErrProtocol, "", err)
	}
	if out.VideoID == nil || strings.TrimSpace(*out.VideoID) == "" {
		return "", errno.New(errno.ErrProtocol, "generation service response missing video_id")
	}
	return *out.VideoID, nil
}

// generateFailure surfaces the upstream message. Client errors keep their
// status; anything else (including auth failures of our API key) is a 500.
func generateFailure(resp *http.Response) error {
	msg := errorMessage(resp.Body)
	if msg == "" {
		msg = "generation service returned an error"
	}
	code := http.StatusInternalServerError
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		code = resp.StatusCode
		return errno.WithCode(errno.ErrInvalidRequest, code, msg)
	}
	return errno.WithCode(errno.ErrUpstreamUnavailable, code, msg)
}

// errorMessage pulls "detail" or "error" out of an error body. A non-string
// detail (e.g. a validation error list) is ignored.
func errorMessage(body io.Reader) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  *string         `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload); err != nil {
		return ""
	}
	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		return detail
	}
	if payload.Error != nil {
		return strings.TrimSpace(*payload.Error)
	}
	return ""
}

// Media is an open upstream video response. The caller owns Body.
type Media struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

// Video opens GET /video/{id}, forwarding rangeHeader verbatim when set.
func (c *Client) Video(ctx context.Context, videoID, rangeHeader string) (*Media, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("video", videoID), nil)
	if err != nil {
		return nil, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp.Body)
		return nil, errno.New(errno.ErrNotFound, "Video file not found")
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		drain(resp.Body)
		return nil, errno.WithCode(errno.ErrInvalidRequest, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		drain(resp.Body)
		return nil, unavailable(fmt.Errorf("video fetch returned %d", resp.StatusCode))
	}
	return &Media{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
