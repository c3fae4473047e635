package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client reads job state from a running gateway.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Fetch implements Fetcher against GET /videos/status/{id}.
func (c *Client) Fetch(ctx context.Context, videoID string) (*Status, error) {
	var st Status
	if err := c.getJSON(ctx, "/videos/status/"+url.PathEscape(videoID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ExploreVideo is one entry of the public gallery.
type ExploreVideo struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Prompt    string    `json:"prompt"`
	VideoURL  *string   `json:"videoUrl"`
	Duration  *float64  `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
	User      *struct {
		Email string `json:"email"`
	} `json:"user"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type ExplorePage struct {
	Videos     []ExploreVideo `json:"videos"`
	Pagination Pagination     `json:"pagination"`
}

// Explore fetches one page of GET /videos/explore.
func (c *Client) Explore(ctx context.Context, page, limit int) (*ExplorePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out ExplorePage
	if err := c.getJSON(ctx, "/videos/explore?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MediaURL is the absolute URL of a gateway media path.
func (c *Client) MediaURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL + path
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errorBody(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, errorBody(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorBody extracts the {error} message the gateway sends with failures.
func errorBody(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&payload); err != nil || payload.Error == "" {
		return "no error message"
	}
	return payload.Error
}
