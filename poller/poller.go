// Package poller follows a generation job from the client side until it
// reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"time"
)

const DefaultInterval = 2 * time.Second

// ErrNotFound is returned by a Fetcher when the job does not exist.
var ErrNotFound = errors.New("video not found")

// Status is the gateway's view of a job, as served by GET /videos/status/{id}.
type Status struct {
	VideoID   string   `json:"video_id"`
	Status    string   `json:"status"`
	Step      *int     `json:"step"`
	Message   *string  `json:"message"`
	FilePath  *string  `json:"file_path"`
	Duration  *float64 `json:"duration"`
	Error     *string  `json:"error"`
	UpdatedAt *string  `json:"updated_at"`
}

func (s *Status) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (*Status, error)
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeNotFound  Outcome = "not_found"
)

// Result is the terminal state a Run ended in. Status is nil for
// OutcomeNotFound.
type Result struct {
	Outcome Outcome
	Status  *Status
}

// Poller fetches immediately and then once per Interval until the job
// completes or fails. OnUpdate, if set, sees every fetched status.
type Poller struct {
	Fetcher  Fetcher
	Interval time.Duration
	OnUpdate func(*Status)
}

// Run blocks until a terminal state, a fetch error or ctx cancellation. A
// fetch error ends the loop; there is no retry. Cancellation is checked
// before every callback so nothing is reported after the caller gave up.
func (p *Poller) Run(ctx context.Context, videoID string) (*Result, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := p.poll(ctx, videoID)
		if res != nil || err != nil {
			return res, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll returns (nil, nil) while the job is still running.
func (p *Poller) poll(ctx context.Context, videoID string) (*Result, error) {
	st, err := p.Fetcher.Fetch(ctx, videoID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, ErrNotFound) {
		return &Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if p.OnUpdate != nil {
		p.OnUpdate(st)
	}
	if !st.Terminal() {
		return nil, nil
	}
	return &Result{Outcome: Outcome(st.Status), Status: st}, nil
}
