package models

import "testing"

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestPlanCompletedWithFile(t *testing.T) {
	v := &Video{VideoId: "job-1", Status: StatusProcessing}
	p := v.Plan(StatusUpdate{Status: StatusCompleted, HasFile: true, Duration: floatPtr(42)})
	v.ApplyPatch(p)

	if v.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", v.Status)
	}
	if v.VideoUrl == nil || *v.VideoUrl != "/videos/file/job-1" {
		t.Fatalf("unexpected media url %v", v.VideoUrl)
	}
	if v.Duration == nil || *v.Duration != 42 {
		t.Fatalf("unexpected duration %v", v.Duration)
	}
	if !v.Consistent() {
		t.Fatalf("record should be consistent")
	}
}

func TestPlanCompletedWithoutFileKeepsProcessing(t *testing.T) {
	v := &Video{VideoId: "job-1", Status: StatusProcessing}
	p := v.Plan(StatusUpdate{Status: StatusCompleted})
	if !p.Empty() {
		t.Fatalf("expected empty patch, got %+v", p)
	}
}

func TestPlanFailedLeavesDurationAlone(t *testing.T) {
	v := &Video{VideoId: "job-1", Status: StatusProcessing}
	p := v.Plan(StatusUpdate{Status: StatusFailed, Duration: floatPtr(3)})
	v.ApplyPatch(p)
	if v.Status != StatusFailed || v.Duration != nil || v.VideoUrl != nil {
		t.Fatalf("unexpected record %+v", v)
	}
	if !v.Consistent() {
		t.Fatalf("failed record must not carry a media url")
	}
}

func TestPlanIgnoresUnknownStatus(t *testing.T) {
	v := &Video{VideoId: "job-1", Status: StatusProcessing}
	if p := v.Plan(StatusUpdate{Status: "queued", HasFile: true}); !p.Empty() {
		t.Fatalf("unknown status produced a patch: %+v", p)
	}
}

func TestPlanProcessingIsNoop(t *testing.T) {
	v := &Video{VideoId: "job-1", Status: StatusProcessing}
	if p := v.Plan(StatusUpdate{Status: StatusProcessing}); !p.Empty() {
		t.Fatalf("expected no-op, got %+v", p)
	}
}

func TestPlanTerminalIsFinal(t *testing.T) {
	url := MediaPath("job-1")
	done := &Video{VideoId: "job-1", Status: StatusCompleted, VideoUrl: &url}
	for _, s := range []VideoStatus{StatusProcessing, StatusFailed, StatusCompleted} {
		if p := done.Plan(StatusUpdate{Status: s, HasFile: true}); !p.Empty() {
			t.Fatalf("completed record changed by %s: %+v", s, p)
		}
	}
	failed := &Video{VideoId: "job-2", Status: StatusFailed}
	if p := failed.Plan(StatusUpdate{Status: StatusCompleted, HasFile: true}); !p.Empty() {
		t.Fatalf("failed record reopened: %+v", p)
	}
}

func TestMediaPathEscapes(t *testing.T) {
	if got := MediaPath("a/b"); got != "/videos/file/a%2Fb" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestNextStep(t *testing.T) {
	last := &VideoStep{VideoId: "job", Step: 1, Message: "Generating the video script..."}

	cases := []struct {
		name   string
		last   *VideoStep
		update StatusUpdate
		want   bool
		step   int
	}{
		{"first entry", nil, StatusUpdate{Step: intPtr(0), Message: strPtr("started")}, true, 0},
		{"nothing reported", nil, StatusUpdate{}, false, 0},
		{"same step same message", last, StatusUpdate{Step: intPtr(1), Message: strPtr("Generating the video script...")}, false, 1},
		{"same step new message", last, StatusUpdate{Step: intPtr(1), Message: strPtr("Still scripting...")}, true, 1},
		{"higher step", last, StatusUpdate{Step: intPtr(2), Message: strPtr("Generating the video script...")}, true, 2},
		{"lower step", last, StatusUpdate{Step: intPtr(0), Message: strPtr("restart")}, false, 0},
		{"missing step new message", last, StatusUpdate{Message: strPtr("Rendering")}, true, 1},
		{"missing message same step", last, StatusUpdate{Step: intPtr(1)}, false, 1},
		{"missing message higher step", last, StatusUpdate{Step: intPtr(3)}, true, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := NextStep("job", tc.last, tc.update)
			if ok != tc.want {
				t.Fatalf("append = %v, want %v", ok, tc.want)
			}
			if next.Step != tc.step {
				t.Fatalf("step = %d, want %d", next.Step, tc.step)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if string(hash) == "correct horse" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !VerifyPassword("correct horse", hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("wrong password verified")
	}
	if VerifyPassword("anything", nil) {
		t.Fatalf("empty hash verified")
	}

	other, _ := HashPassword("correct horse", 4)
	if string(other) == string(hash) {
		t.Fatalf("expected salted hashes to differ")
	}
}
