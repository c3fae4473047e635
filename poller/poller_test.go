package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type scriptedFetcher struct {
	mu     sync.Mutex
	script []func() (*Status, error)
	calls  int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, videoID string) (*Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	return f.script[i]()
}

func status(s string, step int) func() (*Status, error) {
	return func() (*Status, error) {
		return &Status{VideoID: "job-1", Status: s, Step: &step}, nil
	}
}

func TestRunUntilCompleted(t *testing.T) {
	f := &scriptedFetcher{script: []func() (*Status, error){
		status("processing", 0), status("processing", 1), status("completed", 5),
	}}
	var seen []int
	p := &Poller{Fetcher: f, Interval: time.Millisecond, OnUpdate: func(s *Status) { seen = append(seen, *s.Step) }}

	res, err := p.Run(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeCompleted || res.Status.Status != "completed" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(seen) != 3 || seen[2] != 5 {
		t.Fatalf("unexpected updates %v", seen)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 fetches, got %d", f.calls)
	}
}

func TestRunFailed(t *testing.T) {
	f := &scriptedFetcher{script: []func() (*Status, error){status("failed", 2)}}
	res, err := (&Poller{Fetcher: f, Interval: time.Millisecond}).Run(context.Background(), "job-1")
	if err != nil || res.Outcome != OutcomeFailed {
		t.Fatalf("unexpected %+v %v", res, err)
	}
}

func TestRunNotFoundIsTerminal(t *testing.T) {
	f := &scriptedFetcher{script: []func() (*Status, error){
		func() (*Status, error) { return nil, ErrNotFound },
	}}
	res, err := (&Poller{Fetcher: f, Interval: time.Millisecond}).Run(context.Background(), "job-1")
	if err != nil || res.Outcome != OutcomeNotFound || res.Status != nil {
		t.Fatalf("unexpected %+v %v", res, err)
	}
}

func TestRunStopsOnFetchError(t *testing.T) {
	boom := errors.New("connection refused")
	f := &scriptedFetcher{script: []func() (*Status, error){
		status("processing", 1),
		func() (*Status, error) { return nil, boom },
		status("completed", 5),
	}}
	res, err := (&Poller{Fetcher: f, Interval: time.Millisecond}).Run(context.Background(), "job-1")
	if !errors.Is(err, boom) || res != nil {
		t.Fatalf("expected fetch error, got %+v %v", res, err)
	}
	if f.calls != 2 {
		t.Fatalf("retried after error: %d calls", f.calls)
	}
}

func TestRunCancelledSkipsCallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &scriptedFetcher{script: []func() (*Status, error){
		status("processing", 0),
		func() (*Status, error) {
			cancel()
			return &Status{Status: "completed"}, nil
		},
	}}
	updates := 0
	p := &Poller{Fetcher: f, Interval: time.Millisecond, OnUpdate: func(*Status) { updates++ }}

	res, err := p.Run(ctx, "job-1")
	if !errors.Is(err, context.Canceled) || res != nil {
		t.Fatalf("expected cancellation, got %+v %v", res, err)
	}
	if updates != 1 {
		t.Fatalf("callback ran after cancellation: %d", updates)
	}
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/status/job-1":
			_, _ = w.Write([]byte(`{"video_id":"job-1","status":"completed","step":5,"file_path":"/videos/file/job-1","duration":42}`))
		case "/videos/status/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Video not found in generation service"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"generation service unavailable"}`))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL+"/", time.Second)

	st, err := c.Fetch(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if st.Status != "completed" || *st.FilePath != "/videos/file/job-1" || *st.Duration != 42 {
		t.Fatalf("unexpected status %+v", st)
	}
	if got := c.MediaURL(*st.FilePath); got != srv.URL+"/videos/file/job-1" {
		t.Fatalf("unexpected media url %s", got)
	}

	if _, err := c.Fetch(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Fetch(context.Background(), "other"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestClientExplore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"videos":[{"id":"a","videoId":"job-1","prompt":"p","videoUrl":"/videos/file/job-1","duration":3,"createdAt":"2026-01-01T00:00:00Z","user":{"email":"ada@example.com"}}],"pagination":{"page":2,"limit":5,"total":6,"totalPages":2}}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, time.Second).Explore(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	if len(page.Videos) != 1 || page.Videos[0].User.Email != "ada@example.com" || page.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}
