// Package services holds the request flows that sit between the HTTP
// handlers, the generation service and the database.
package services

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"vidgen-gateway/database"
	"vidgen-gateway/errno"
	"vidgen-gateway/models"
	"vidgen-gateway/upstream"
)

const (
	DefaultResolution = "m"
	DefaultVoice      = "nova"
	DefaultSyncMethod = "timing_analysis"
)

// Generator is the part of the upstream client the generation flow uses.
type Generator interface {
	Generate(ctx context.Context, req upstream.GenerateRequest) (string, error)
	Upload(ctx context.Context, files []*multipart.FileHeader) (*upstream.Relay, error)
}

// GenerateInput is the client request body for POST /videos/generate.
type GenerateInput struct {
	Prompt               string `json:"prompt" validate:"required,max=10000"`
	Resolution           string `json:"resolution" validate:"omitempty,max=16"`
	IncludeAudio         *bool  `json:"include_audio"`
	Voice                string `json:"voice" validate:"omitempty,max=64"`
	Language             string `json:"language" validate:"omitempty,max=64"`
	SyncMethod           string `json:"sync_method" validate:"omitempty,max=64"`
	UploadedFilesContext string `json:"uploaded_files_context"`
}

// Request applies the defaults and builds the upstream payload.
func (in GenerateInput) Request() upstream.GenerateRequest {
	return upstream.GenerateRequest{
		Prompt:               strings.TrimSpace(in.Prompt),
		Resolution:           orDefault(in.Resolution, DefaultResolution),
		IncludeAudio:         in.IncludeAudio == nil || *in.IncludeAudio,
		Voice:                orDefault(in.Voice, DefaultVoice),
		Language:             strings.TrimSpace(in.Language),
		SyncMethod:           orDefault(in.SyncMethod, DefaultSyncMethod),
		UploadedFilesContext: strings.TrimSpace(in.UploadedFilesContext),
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// GenerateResult is returned to the client once a job is accepted.
type GenerateResult struct {
	Success    bool   `json:"success"`
	VideoID    string `json:"video_id"`
	DatabaseID string `json:"database_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type GenerationService struct {
	up    Generator
	store *database.Store
	log   logrus.FieldLogger
}

func NewGenerationService(up Generator, store *database.Store, log logrus.FieldLogger) *GenerationService {
	return &GenerationService{up: up, store: store, log: log}
}

// Generate starts an upstream job and records it. ownerID is nil for
// anonymous callers.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput, ownerID *string) (*GenerateResult, error) {
	req := in.Request()
	if req.Prompt == "" {
		return nil, errno.New(errno.ErrInvalidRequest, "prompt is required")
	}

	videoID, err := s.up.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	params, err := json.Marshal(req)
	if err != nil {
		return nil, errno.Wrap(errno.ErrInternal, "", err)
	}
	video := &models.Video{
		VideoId: videoID,
		UserId:  ownerID,
		Prompt:  req.Prompt,
		Params:  datatypes.JSON(params),
	}
	if err := s.store.CreateVideo(ctx, video); err != nil {
		s.log.WithError(err).WithField("video_id", videoID).Error("record generated video")
		return nil, errno.Wrap(errno.ErrInternal, "", err)
	}

	s.log.WithFields(logrus.Fields{
		"video_id":    videoID,
		"database_id": video.Id,
		"anonymous":   ownerID == nil,
	}).Info("video generation started")

	return &GenerateResult{
		Success:    true,
		VideoID:    videoID,
		DatabaseID: video.Id,
		Status:     string(models.StatusProcessing),
		Message:    "Video generation started successfully",
	}, nil
}

// Upload relays reference files to the generation service. Nothing is
// stored locally.
func (s *GenerationService) Upload(ctx context.Context, files []*multipart.FileHeader) (*upstream.Relay, error) {
	if len(files) == 0 {
		return nil, errno.New(errno.ErrInvalidRequest, "No files provided")
	}
	relay, err := s.up.Upload(ctx, files)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"files": len(files), "status": relay.StatusCode}).Debug("upload relayed")
	return relay, nil
}
