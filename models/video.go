package models

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VideoStatus string

const (
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

// Valid reports whether s is one of the known job states.
func (s VideoStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further reconciliation happens from s.
func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MediaPathPrefix is where the media proxy is mounted.
const MediaPathPrefix = "/videos/file/"

// MediaPath is the client-visible URL for a job's video. Upstream file paths
// are never handed out.
func MediaPath(videoID string) string {
	return MediaPathPrefix + url.PathEscape(videoID)
}

// Video mirrors one generation job of the external service.
type Video struct {
	Id        string         `json:"id" gorm:"primaryKey"`
	VideoId   string         `json:"videoId" gorm:"size:128;uniqueIndex;not null"`
	UserId    *string        `json:"userId" gorm:"index"`
	User      *User          `json:"user,omitempty" gorm:"foreignKey:UserId;references:Id"`
	Prompt    string         `json:"prompt" gorm:"type:text;not null"`
	Params    datatypes.JSON `json:"params,omitempty"`
	Status    VideoStatus    `json:"status" gorm:"size:16;not null;default:'processing';index"`
	VideoUrl  *string        `json:"videoUrl"`
	Duration  *float64       `json:"duration"`
	Steps     []VideoStep    `json:"steps,omitempty" gorm:"foreignKey:VideoId;references:VideoId"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (video *Video) BeforeCreate(tx *gorm.DB) (err error) {
	if video.Id == "" {
		video.Id = uuid.NewString()
	}
	if video.Status == "" {
		video.Status = StatusProcessing
	}
	return
}

// StatusUpdate is a validated status report from the generation service.
// Nil fields were absent upstream.
type StatusUpdate struct {
	Status   VideoStatus
	Step     *int
	Message  *string
	HasFile  bool
	Duration *float64
}

// VideoPatch holds the columns a reconciliation changes. Nil fields are left
// alone; json tags double as column names.
type VideoPatch struct {
	Status   *string  `json:"status"`
	VideoUrl *string  `json:"video_url"`
	Duration *float64 `json:"duration"`
}

func (p VideoPatch) Empty() bool {
	return p.Status == nil && p.VideoUrl == nil && p.Duration == nil
}

// Plan computes the patch that brings the record in line with u.
// Completed and failed records are final and always get an empty patch.
func (video *Video) Plan(u StatusUpdate) VideoPatch {
	var p VideoPatch
	if video.Status.Terminal() || !u.Status.Valid() {
		return p
	}
	switch u.Status {
	case StatusCompleted:
		// completed without a file would break url<->completed; wait for the file
		if !u.HasFile {
			return p
		}
		status := string(StatusCompleted)
		mediaURL := MediaPath(video.VideoId)
		p.Status = &status
		p.VideoUrl = &mediaURL
		if u.Duration != nil {
			d := *u.Duration
			p.Duration = &d
		}
	case StatusFailed:
		status := string(StatusFailed)
		p.Status = &status
	case StatusProcessing:
		if video.Status != StatusProcessing {
			status := string(StatusProcessing)
			p.Status = &status
		}
	}
	return p
}

// ApplyPatch copies p onto the in-memory record.
func (video *Video) ApplyPatch(p VideoPatch) {
	if p.Status != nil {
		video.Status = VideoStatus(*p.Status)
	}
	if p.VideoUrl != nil {
		u := *p.VideoUrl
		video.VideoUrl = &u
	}
	if p.Duration != nil {
		d := *p.Duration
		video.Duration = &d
	}
}

// Consistent checks that a media URL is present exactly when the job completed.
func (video *Video) Consistent() bool {
	return (video.VideoUrl != nil) == (video.Status == StatusCompleted)
}
