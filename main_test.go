package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"vidgen-gateway/poller"
)

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B", "C"}, [][]string{{"x"}, {"1", "2", "3"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"A", "B", "C", "x", "1", "2", "3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer prompt", 5, "a lo…"},
		{"ääääää", 3, "ää…"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestStepPrinterSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	show := newStepPrinter(&buf)

	show(&poller.Status{Status: "processing"})
	show(&poller.Status{Status: "processing", Step: intPtr(0), Message: strPtr("started")})
	show(&poller.Status{Status: "processing", Step: intPtr(0), Message: strPtr("started")})
	show(&poller.Status{Status: "processing", Step: intPtr(1), Message: strPtr("Generating script")})
	show(&poller.Status{Status: "processing", Step: intPtr(1), Message: strPtr("Script ready")})

	want := "[step 0] started\n[step 1] Generating script\n[step 1] Script ready\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestReportOutcome(t *testing.T) {
	client := poller.NewClient("http://gw.local/", time.Second)

	var buf bytes.Buffer
	err := reportOutcome(&buf, client, "job-1", &poller.Result{
		Outcome: poller.OutcomeCompleted,
		Status: &poller.Status{
			Status:   "completed",
			FilePath: strPtr("/videos/file/job-1"),
			Duration: floatPtr(42.4),
		},
	})
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if got := buf.String(); got != "Video ready: http://gw.local/videos/file/job-1\nDuration: 42s\n" {
		t.Fatalf("unexpected output: %q", got)
	}

	err = reportOutcome(&buf, client, "job-1", &poller.Result{
		Outcome: poller.OutcomeFailed,
		Status:  &poller.Status{Status: "failed", Error: strPtr("render crashed")},
	})
	if err == nil || !strings.Contains(err.Error(), "render crashed") {
		t.Fatalf("expected failure reason, got %v", err)
	}

	err = reportOutcome(&buf, client, "job-9", &poller.Result{Outcome: poller.OutcomeNotFound})
	if err == nil || !strings.Contains(err.Error(), "job-9") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRenderExplore(t *testing.T) {
	client := poller.NewClient("http://gw.local", time.Second)
	page := &poller.ExplorePage{
		Videos: []poller.ExploreVideo{
			{
				VideoID:   "job-1",
				Prompt:    "explain the fourier transform",
				VideoURL:  strPtr("/videos/file/job-1"),
				Duration:  floatPtr(61),
				CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
			},
		},
		Pagination: poller.Pagination{Page: 1, Limit: 20, Total: 1, TotalPages: 1},
	}
	page.Videos[0].User = &struct {
		Email string `json:"email"`
	}{Email: "ada@example.com"}

	out := renderExplore(client, page)
	for _, want := range []string{"job-1", "explain the fourier transform", "1m1s", "ada@example.com", "http://gw.local/videos/file/job-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("explore table missing %q:\n%s", want, out)
		}
	}
}
