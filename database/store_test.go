package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"vidgen-gateway/config"
	"vidgen-gateway/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "store.db")}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"":                        "vidgen.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		"file:x.db?cache=shared":  "file:x.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		"x.db?_pragma=journal(1)": "x.db?_pragma=journal(1)",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(config.DatabaseConfig{Driver: "mysql"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestCreateVideoForcesProcessing(t *testing.T) {
	store := newTestStore(t)
	url := "/elsewhere"
	video := &models.Video{VideoId: "job-1", Prompt: "p", Status: models.StatusCompleted, VideoUrl: &url}

	if err := store.CreateVideo(context.Background(), video); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	got, err := store.FindVideo(context.Background(), "job-1")
	if err != nil || got == nil {
		t.Fatalf("FindVideo: %v %v", got, err)
	}
	if got.Status != models.StatusProcessing || got.VideoUrl != nil || got.Id == "" {
		t.Fatalf("unexpected video %+v", got)
	}
	if len(video.Steps) != 1 || video.Steps[0].Message != models.InitialStepMessage {
		t.Fatalf("initial step missing: %+v", video.Steps)
	}
}

func TestCreateVideoDuplicateJobRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateVideo(ctx, &models.Video{VideoId: "job-1", Prompt: "p"}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if err := store.CreateVideo(ctx, &models.Video{VideoId: "job-1", Prompt: "q"}); err == nil {
		t.Fatalf("expected duplicate job error")
	}
	steps, err := store.Steps(ctx, "job-1")
	if err != nil || len(steps) != 1 {
		t.Fatalf("expected a single step, got %d (%v)", len(steps), err)
	}
}

func TestFindVideoMissing(t *testing.T) {
	store := newTestStore(t)
	v, err := store.FindVideo(context.Background(), "nope")
	if err != nil || v != nil {
		t.Fatalf("expected nil, nil; got %v %v", v, err)
	}
}

func TestReconcileVideoUnknownJob(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.ReconcileVideo(context.Background(), "nope", models.StatusUpdate{Status: models.StatusFailed})
	if err != nil || rec != nil {
		t.Fatalf("expected nil, nil; got %v %v", rec, err)
	}
}

func TestReconcileVideoRoundsDuration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateVideo(ctx, &models.Video{VideoId: "job-1", Prompt: "p"}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	d := 12.3456
	rec, err := store.ReconcileVideo(ctx, "job-1", models.StatusUpdate{
		Status: models.StatusCompleted, HasFile: true, Duration: &d,
	})
	if err != nil {
		t.Fatalf("ReconcileVideo: %v", err)
	}
	if rec.Video.Status != models.StatusCompleted || *rec.Video.Duration != 12.35 {
		t.Fatalf("unexpected video %+v", rec.Video)
	}
	if rec.Appended != nil {
		t.Fatalf("no step reported, none expected: %+v", rec.Appended)
	}

	stored, _ := store.FindVideo(ctx, "job-1")
	if *stored.VideoUrl != "/videos/file/job-1" || *stored.Duration != 12.35 {
		t.Fatalf("unexpected stored video %+v", stored)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateUser(ctx, &models.User{Email: "Ada@Example.com", Password: []byte("x")}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := store.CreateUser(ctx, &models.User{Email: " ada@example.com ", Password: []byte("y")})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	u, err := store.FindUserByEmail(ctx, "ADA@example.com")
	if err != nil || u == nil || u.Email != "ada@example.com" {
		t.Fatalf("FindUserByEmail: %+v %v", u, err)
	}
	byID, err := store.FindUserByID(ctx, u.Id)
	if err != nil || byID == nil || byID.Email != u.Email {
		t.Fatalf("FindUserByID: %+v %v", byID, err)
	}
}

func TestCompletedVideosPaging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner := &models.User{Email: "owner@example.com", Password: []byte("x")}
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		if err := store.CreateVideo(ctx, &models.Video{VideoId: id, Prompt: id, UserId: &owner.Id}); err != nil {
			t.Fatalf("CreateVideo: %v", err)
		}
		// keep created_at strictly increasing
		time.Sleep(5 * time.Millisecond)
		if i%2 == 0 {
			if _, err := store.ReconcileVideo(ctx, id, models.StatusUpdate{Status: models.StatusCompleted, HasFile: true}); err != nil {
				t.Fatalf("ReconcileVideo: %v", err)
			}
		}
	}

	page, total, err := store.CompletedVideos(ctx, 0, 2)
	if err != nil {
		t.Fatalf("CompletedVideos: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("total=%d len=%d", total, len(page))
	}
	if page[0].VideoId != "job-4" || page[1].VideoId != "job-2" {
		t.Fatalf("not newest first: %s, %s", page[0].VideoId, page[1].VideoId)
	}
	if page[0].User == nil || page[0].User.Email != "owner@example.com" {
		t.Fatalf("owner not preloaded")
	}

	rest, _, err := store.CompletedVideos(ctx, 2, 2)
	if err != nil || len(rest) != 1 || rest[0].VideoId != "job-0" {
		t.Fatalf("second page: %+v %v", rest, err)
	}

	mine, err := store.VideosByOwner(ctx, owner.Id)
	if err != nil || len(mine) != 5 || mine[0].VideoId != "job-4" {
		t.Fatalf("VideosByOwner: %d %v", len(mine), err)
	}
}
