package models

import "time"

// InitialStepMessage is logged when a generation request is accepted.
const InitialStepMessage = "started"

// VideoStep is one entry of a job's append-only progress log.
type VideoStep struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	VideoId   string    `json:"videoId" gorm:"size:128;not null;index:idx_video_steps_video_step,priority:1"`
	Step      int       `json:"step" gorm:"not null;index:idx_video_steps_video_step,priority:2"`
	Message   string    `json:"message" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NextStep decides whether u adds a log entry after last. A step is
// appended when the index increases, or when it stays the same and the
// message changed. Lower indexes are ignored so the log never goes backwards.
func NextStep(videoID string, last *VideoStep, u StatusUpdate) (VideoStep, bool) {
	step := 0
	if last != nil {
		step = last.Step
	}
	if u.Step != nil {
		step = *u.Step
	}
	message := ""
	if u.Message != nil {
		message = *u.Message
	}
	next := VideoStep{VideoId: videoID, Step: step, Message: message}

	if last == nil {
		return next, u.Step != nil || u.Message != nil
	}
	switch {
	case step > last.Step:
		return next, true
	case step == last.Step:
		return next, u.Message != nil && message != last.Message
	default:
		return next, false
	}
}
