package services

import (
	"context"
	"io"
	"net/http"

	"vidgen-gateway/upstream"
)

// VideoSource opens the upstream video file.
type VideoSource interface {
	Video(ctx context.Context, videoID, rangeHeader string) (*upstream.Media, error)
}

// MediaStream is a proxied video response. The caller must close Body.
type MediaStream struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

type MediaProxy struct {
	up           VideoSource
	cacheControl string
}

func NewMediaProxy(up VideoSource, cacheControl string) *MediaProxy {
	return &MediaProxy{up: up, cacheControl: cacheControl}
}

// copied from upstream when present
var passthroughHeaders = []string{"Content-Length", "Content-Range", "Content-Type"}

// Stream opens the job's video, forwarding rangeHeader. Upstream 404 maps to
// NotFound and 416 to a client error; any other failure is UpstreamUnavailable.
func (p *MediaProxy) Stream(ctx context.Context, videoID, rangeHeader string) (*MediaStream, error) {
	media, err := p.up.Video(ctx, videoID, rangeHeader)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set("Content-Type", "video/mp4")
	h.Set("Accept-Ranges", "bytes")
	if p.cacheControl != "" {
		h.Set("Cache-Control", p.cacheControl)
	}
	for _, name := range passthroughHeaders {
		if v := media.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}

	status := http.StatusOK
	if media.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	return &MediaStream{
		StatusCode:    status,
		Header:        h,
		ContentLength: media.ContentLength,
		Body:          media.Body,
	}, nil
}
