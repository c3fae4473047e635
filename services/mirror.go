package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"vidgen-gateway/database"
	"vidgen-gateway/errno"
	"vidgen-gateway/models"
	"vidgen-gateway/upstream"
	"vidgen-gateway/utils"
)

// StatusSource fetches the upstream view of a job.
type StatusSource interface {
	Status(ctx context.Context, videoID string) (*upstream.Status, error)
}

// StatusView is what clients polling a job see. FilePath is always the
// local media path, never the generation service's file location.
type StatusView struct {
	VideoID   string   `json:"video_id"`
	Status    string   `json:"status"`
	Step      *int     `json:"step"`
	Message   *string  `json:"message"`
	FilePath  *string  `json:"file_path"`
	Duration  *float64 `json:"duration"`
	Error     *string  `json:"error"`
	UpdatedAt *string  `json:"updated_at"`
}

func newStatusView(videoID string, st *upstream.Status) *StatusView {
	view := &StatusView{
		VideoID:   videoID,
		Status:    *st.Status,
		Step:      st.Step,
		Message:   st.Message,
		Error:     st.Error,
		UpdatedAt: st.UpdatedAt,
	}
	if st.Duration != nil {
		d := utils.Round2(*st.Duration)
		view.Duration = &d
	}
	if st.HasFile() {
		p := models.MediaPath(videoID)
		view.FilePath = &p
	}
	return view
}

// StatusMirror answers status polls and copies what it learns into the
// local record.
type StatusMirror struct {
	up    StatusSource
	store *database.Store
	log   logrus.FieldLogger
	group singleflight.Group
}

func NewStatusMirror(up StatusSource, store *database.Store, log logrus.FieldLogger) *StatusMirror {
	return &StatusMirror{up: up, store: store, log: log}
}

// Refresh fetches the job from upstream, reconciles the local record if one
// exists and returns the normalized view. Concurrent refreshes of the same
// job share one upstream call and one reconciliation.
func (m *StatusMirror) Refresh(ctx context.Context, videoID string) (*StatusView, error) {
	v, err, _ := m.group.Do(videoID, func() (any, error) {
		return m.refresh(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*StatusView), nil
}

func (m *StatusMirror) refresh(ctx context.Context, videoID string) (*StatusView, error) {
	st, err := m.up.Status(ctx, videoID)
	if err != nil {
		return nil, err
	}

	rec, err := m.store.ReconcileVideo(ctx, videoID, st.Update())
	if err != nil {
		m.log.WithError(err).WithField("video_id", videoID).Error("reconcile video status")
		return nil, errno.Wrap(errno.ErrInternal, "", err)
	}

	entry := m.log.WithField("video_id", videoID)
	switch {
	case rec == nil:
		entry.Debug("status for unknown job, nothing recorded")
	case !rec.Patch.Empty() || rec.Appended != nil:
		entry = entry.WithField("status", rec.Video.Status)
		if rec.Appended != nil {
			entry = entry.WithFields(logrus.Fields{"step": rec.Appended.Step, "message": rec.Appended.Message})
		}
		entry.Debug("status mirrored")
	}

	return newStatusView(videoID, st), nil
}
