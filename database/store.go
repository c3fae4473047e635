package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidgen-gateway/models"
	"vidgen-gateway/utils"
)

// ErrEmailTaken is returned by CreateUser for a duplicate address.
var ErrEmailTaken = errors.New("email already exists")

// Store wraps the gorm handle with the queries the handlers need.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateVideo inserts video together with its initial "started" step.
func (s *Store) CreateVideo(ctx context.Context, video *models.Video) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		video.Status = models.StatusProcessing
		video.VideoUrl = nil
		video.Duration = nil
		if err := tx.Omit(clause.Associations).Create(video).Error; err != nil {
			return fmt.Errorf("create video: %w", err)
		}
		step := models.VideoStep{
			VideoId: video.VideoId,
			Step:    0,
			Message: models.InitialStepMessage,
		}
		if err := tx.Create(&step).Error; err != nil {
			return fmt.Errorf("create initial step: %w", err)
		}
		video.Steps = []models.VideoStep{step}
		return nil
	})
}

// FindVideo returns the record for an external job id, or nil when the job
// was never routed through this service.
func (s *Store) FindVideo(ctx context.Context, videoID string) (*models.Video, error) {
	var video models.Video
	err := s.db.WithContext(ctx).Where("video_id = ?", videoID).First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// Steps lists a job's log in append order.
func (s *Store) Steps(ctx context.Context, videoID string) ([]models.VideoStep, error) {
	var steps []models.VideoStep
	err := s.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("id asc").
		Find(&steps).Error
	return steps, err
}

// Reconciliation describes what ReconcileVideo changed.
type Reconciliation struct {
	Video    *models.Video
	Patch    models.VideoPatch
	Appended *models.VideoStep
}

// ReconcileVideo mirrors an upstream status report into the local record.
// The video row is locked for the whole transaction so the read of the last
// step and the conditional append cannot interleave with another refresh.
// Returns nil when no local record exists.
func (s *Store) ReconcileVideo(ctx context.Context, videoID string, update models.StatusUpdate) (*Reconciliation, error) {
	var out *Reconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var video models.Video
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("video_id = ?", videoID).
			First(&video).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load video: %w", err)
		}

		out = &Reconciliation{Video: &video}
		if video.Status.Terminal() {
			return nil
		}

		patch := video.Plan(update)
		if !patch.Empty() {
			utils.NormalizePtrDTO(&patch)
			if err := tx.Model(&video).Updates(utils.UpdatesFromPtrDTO(&patch, nil)).Error; err != nil {
				return fmt.Errorf("update video: %w", err)
			}
			video.ApplyPatch(patch)
			if !video.Consistent() {
				return fmt.Errorf("video %s: media url and status disagree after update", videoID)
			}
			out.Patch = patch
		}

		var last []models.VideoStep
		if err := tx.Where("video_id = ?", videoID).Order("id desc").Limit(1).Find(&last).Error; err != nil {
			return fmt.Errorf("load last step: %w", err)
		}
		var lastStep *models.VideoStep
		if len(last) > 0 {
			lastStep = &last[0]
		}
		next, ok := models.NextStep(videoID, lastStep, update)
		if !ok {
			return nil
		}
		if err := tx.Create(&next).Error; err != nil {
			return fmt.Errorf("append step: %w", err)
		}
		out.Appended = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VideosByOwner lists a user's videos, newest first.
func (s *Store) VideosByOwner(ctx context.Context, userID string) ([]models.Video, error) {
	var videos []models.Video
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&videos).Error
	return videos, err
}

// CompletedVideos pages through finished videos that have a media URL.
func (s *Store) CompletedVideos(ctx context.Context, offset, limit int) ([]models.Video, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Video{}).
		Where("status = ? AND video_url IS NOT NULL", models.StatusCompleted)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []models.Video
	err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&videos).Error
	return videos, total, err
}

// CreateUser inserts user, failing with ErrEmailTaken on a duplicate email.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	existing, err := s.FindUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", normalizeEmail(email))
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
