package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vidgen-gateway/errno"
	"vidgen-gateway/models"
)

// Status is the body of GET /status/{id}. Every optional field is a pointer
// so absence stays distinguishable from zero values.
type Status struct {
	Status    *string  `json:"status" validate:"required,oneof=processing completed failed"`
	Step      *int     `json:"step" validate:"omitempty,gte=0"`
	Message   *string  `json:"message"`
	FilePath  *string  `json:"file_path"`
	Duration  *float64 `json:"duration" validate:"omitempty,gte=0"`
	Error     *string  `json:"error"`
	UpdatedAt *string  `json:"updated_at"`
}

// HasFile reports whether the service produced a video file.
func (s *Status) HasFile() bool {
	return s.FilePath != nil && strings.TrimSpace(*s.FilePath) != ""
}

// Update converts the payload to the reconciliation input.
func (s *Status) Update() models.StatusUpdate {
	return models.StatusUpdate{
		Status:   models.VideoStatus(*s.Status),
		Step:     s.Step,
		Message:  s.Message,
		HasFile:  s.HasFile(),
		Duration: s.Duration,
	}
}

// Status fetches the job state. A 404 is NotFound, transport problems and
// other failures are UpstreamUnavailable, and a payload that does not match
// the schema is a ProtocolError.
func (c *Client) Status(ctx context.Context, videoID string) (*Status, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("status", videoID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errno.New(errno.ErrNotFound, "Video not found in generation service")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, unavailable(fmt.Errorf("status fetch returned %d", resp.StatusCode))
	}

	return decodeStatus(resp.Body)
}

func decodeStatus(body io.Reader) (*Status, error) {
	var st Status
	if err := json.NewDecoder(body).Decode(&st); err != nil {
		return nil, errno.Wrap(errno.ErrProtocol, "", err)
	}
	if err := validate.Struct(&st); err != nil {
		return nil, errno.Wrap(errno.ErrProtocol, "", err)
	}
	return &st, nil
}
