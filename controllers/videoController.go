package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"vidgen-gateway/database"
	"vidgen-gateway/errno"
	"vidgen-gateway/middlewares"
	"vidgen-gateway/models"
	"vidgen-gateway/services"
	"vidgen-gateway/utils"
)

const (
	defaultExploreLimit = 20
	maxExploreLimit     = 100
)

type VideoController struct {
	generation *services.GenerationService
	mirror     *services.StatusMirror
	media      *services.MediaProxy
	store      *database.Store
}

func NewVideoController(generation *services.GenerationService, mirror *services.StatusMirror, media *services.MediaProxy, store *database.Store) *VideoController {
	return &VideoController{generation: generation, mirror: mirror, media: media, store: store}
}

func (v *VideoController) Generate(c *fiber.Ctx) error {
	var in services.GenerateInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := v.generation.Generate(c.UserContext(), in, middlewares.OwnerID(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (v *VideoController) Status(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return errno.New(errno.ErrInvalidRequest, "video id is required")
	}
	view, err := v.mirror.Refresh(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// File streams the video from the generation service. The body is read by
// fasthttp after this handler returns, so the upstream request must not be
// tied to a context that ends with the handler.
func (v *VideoController) File(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return errno.New(errno.ErrInvalidRequest, "video id is required")
	}
	stream, err := v.media.Stream(c.UserContext(), id, c.Get(fiber.HeaderRange))
	if err != nil {
		return err
	}

	for name, values := range stream.Header {
		// fasthttp derives Content-Length from the stream size
		if name == fiber.HeaderContentLength || len(values) == 0 {
			continue
		}
		c.Set(name, values[0])
	}
	size := -1
	if stream.ContentLength >= 0 {
		size = int(stream.ContentLength)
	}
	c.Status(stream.StatusCode)
	return c.SendStream(stream.Body, size)
}

type ownVideo struct {
	Id        string             `json:"id"`
	VideoId   string             `json:"videoId"`
	Prompt    string             `json:"prompt"`
	VideoUrl  *string            `json:"videoUrl"`
	Duration  *float64           `json:"duration"`
	Status    models.VideoStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// MyVideos lists the caller's videos. Mounted behind RequireUser.
func (v *VideoController) MyVideos(c *fiber.Ctx) error {
	user := middlewares.UserFrom(c)
	videos, err := v.store.VideosByOwner(c.UserContext(), user.Id)
	if err != nil {
		return errno.Wrap(errno.ErrInternal, "", err)
	}
	out := make([]ownVideo, 0, len(videos))
	for _, video := range videos {
		out = append(out, ownVideo{
			Id:        video.Id,
			VideoId:   video.VideoId,
			Prompt:    video.Prompt,
			VideoUrl:  video.VideoUrl,
			Duration:  video.Duration,
			Status:    video.Status,
			CreatedAt: video.CreatedAt,
			UpdatedAt: video.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"videos": out, "count": len(out)})
}

type exploreOwner struct {
	Email string `json:"email"`
}

type exploreVideo struct {
	Id        string        `json:"id"`
	VideoId   string        `json:"videoId"`
	Prompt    string        `json:"prompt"`
	VideoUrl  *string       `json:"videoUrl"`
	Duration  *float64      `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
	User      *exploreOwner `json:"user"`
}

// Explore pages through completed videos, newest first.
func (v *VideoController) Explore(c *fiber.Ctx) error {
	page := utils.ParseIntDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := utils.Clamp(utils.ParseIntDefault(c.Query("limit"), defaultExploreLimit), 1, maxExploreLimit)

	videos, total, err := v.store.CompletedVideos(c.UserContext(), (page-1)*limit, limit)
	if err != nil {
		return errno.Wrap(errno.ErrInternal, "", err)
	}

	out := make([]exploreVideo, 0, len(videos))
	for _, video := range videos {
		item := exploreVideo{
			Id:        video.Id,
			VideoId:   video.VideoId,
			Prompt:    video.Prompt,
			VideoUrl:  video.VideoUrl,
			Duration:  video.Duration,
			CreatedAt: video.CreatedAt,
		}
		if video.User != nil {
			item.User = &exploreOwner{Email: video.User.Email}
		}
		out = append(out, item)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return c.JSON(fiber.Map{
		"videos": out,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}
